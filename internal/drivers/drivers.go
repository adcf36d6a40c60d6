// Package drivers holds the static driver metadata of the 2023 grid.
package drivers

import "fmt"

// FallbackColor is used for drivers not in the table.
const FallbackColor = "#888888"

type Driver struct {
	Number string
	Name   string
	Team   string
	Color  string
}

var grid = []Driver{
	{"1", "Max Verstappen", "Red Bull Racing", "#0600EF"},
	{"11", "Sergio Perez", "Red Bull Racing", "#0600EF"},
	{"44", "Lewis Hamilton", "Mercedes", "#00D2BE"},
	{"63", "George Russell", "Mercedes", "#00D2BE"},
	{"16", "Charles Leclerc", "Ferrari", "#DC143C"},
	{"55", "Carlos Sainz", "Ferrari", "#DC143C"},
	{"4", "Lando Norris", "McLaren", "#FF8700"},
	{"81", "Oscar Piastri", "McLaren", "#FF8700"},
	{"14", "Fernando Alonso", "Aston Martin", "#006F62"},
	{"18", "Lance Stroll", "Aston Martin", "#006F62"},
	{"10", "Pierre Gasly", "Alpine", "#FFC0CB"},
	{"31", "Esteban Ocon", "Alpine", "#FFC0CB"},
	{"77", "Valtteri Bottas", "Alfa Romeo", "#00FF00"},
	{"24", "Zhou Guanyu", "Alfa Romeo", "#00FF00"},
	{"20", "Kevin Magnussen", "Haas", "#005AFF"},
	{"27", "Nico Hulkenberg", "Haas", "#005AFF"},
	{"3", "Liam Lawson", "AlphaTauri", "#2B4562"},
	{"22", "Yuki Tsunoda", "AlphaTauri", "#2B4562"},
	{"21", "Nyck de Vries", "AlphaTauri", "#2B4562"},
	{"2", "Logan Sargeant", "Williams", "#37BEDD"},
	{"23", "Alex Albon", "Williams", "#37BEDD"},
}

var byNumber = func() map[string]Driver {
	ret := make(map[string]Driver, len(grid))
	for _, d := range grid {
		ret[d.Number] = d
	}
	return ret
}()

// Lookup returns the metadata of a driver, if known.
func Lookup(id string) (Driver, bool) {
	d, ok := byNumber[id]
	return d, ok
}

// All returns the table in grid order.
func All() []Driver {
	return append([]Driver(nil), grid...)
}

func DisplayName(id string) string {
	if d, ok := byNumber[id]; ok {
		return d.Name
	}
	return fmt.Sprintf("Driver #%s", id)
}

func TeamColor(id string) string {
	if d, ok := byNumber[id]; ok {
		return d.Color
	}
	return FallbackColor
}

// Label is the "#<id> <name>" caption used by charts and legends.
func Label(id string) string {
	return fmt.Sprintf("#%s %s", id, DisplayName(id))
}

// Package utils provides small shared helpers: run naming, business-day
// arithmetic and retry logic.
package utils

import "math/rand"

var animals = []string{
	"Eagle", "Tiger", "Lion", "Wolf", "Bear", "Falcon", "Shark", "Panther", "Leopard", "Cheetah",
	"Hawk", "Fox", "Owl", "Cobra", "Jaguar", "Horse", "Elephant", "Dolphin", "Gorilla", "Lynx",
}

var professions = []string{
	"Carpenter", "Engineer", "Doctor", "Pilot", "Farmer", "Artist", "Blacksmith", "Chef", "Teacher", "Mechanic",
	"Architect", "Scientist", "Soldier", "Nurse", "Firefighter", "Plumber", "Astronaut", "Tailor", "Photographer", "Lawyer",
}

var colors = []string{
	"Red", "Blue", "Green", "Yellow", "Black", "White", "Purple", "Orange", "Brown", "Grey",
	"Pink", "Violet", "Crimson", "Turquoise", "Gold", "Silver", "Amber", "Magenta", "Teal", "Indigo",
}

// GenerateRunName returns a memorable name for a backtest run, of the form
// ColorAnimalProfession (e.g. "TealFoxArchitect").
func GenerateRunName() string {
	return colors[rand.Intn(len(colors))] +
		animals[rand.Intn(len(animals))] +
		professions[rand.Intn(len(professions))]
}

package catalog

import "fmt"

// Kind selects which catalog a repo operates on. Exercises and foods
// share the same ownership and name resolution rules.
type Kind string

const (
	KindExercise Kind = "exercise"
	KindFood     Kind = "food"
)

func KindFromString(s string) (Kind, error) {
	switch s {
	case "exercise", "exercises":
		return KindExercise, nil
	case "food", "foods":
		return KindFood, nil
	}
	return "", fmt.Errorf("unknown catalog kind: %s", s)
}

func (k Kind) table() string {
	if k == KindFood {
		return "foods"
	}
	return "exercises"
}

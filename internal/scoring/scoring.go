// Package scoring judges learner answers: exact checks for phonics and
// spelling questions, and phonetic matching of read-aloud transcripts against
// a step's expected words.
package scoring

import "strings"

// Phonics reports whether the selected option index is the correct one.
func Phonics(selected, correct int) bool {
	return selected == correct
}

// Spelling reports whether a typed answer matches the target word. Leading
// and trailing whitespace is ignored and the comparison is case-insensitive,
// but the comparison is otherwise exact: "Chop " passes for "chop", while
// "chops" does not.
func Spelling(input, answer string) bool {
	return strings.ToLower(strings.TrimSpace(input)) == strings.ToLower(strings.TrimSpace(answer))
}

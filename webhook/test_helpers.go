package webhook

import "github.com/stretchr/testify/mock"

// MatchDraft creates a custom matcher for draft arguments in mocks
func MatchDraft(matcher func(Draft) bool) interface{} {
	return mock.MatchedBy(matcher)
}

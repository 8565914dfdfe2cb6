package rag

import (
	"reflect"
	"testing"

	"github.com/askfolio/askfolio/internal/domain"
)

func TestExtractCitations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int
	}{
		{"none", "no citations here", nil},
		{"single", "create it from the projects page [1].", []int{1}},
		{"multiple", "first [1], then [2] and finally [3].", []int{1, 2, 3}},
		{"whitespace inside brackets", "padded [ 2 ] marker", []int{2}},
		{"duplicates collapsed", "[1] says this, and [1] repeats it [2]", []int{1, 2}},
		{"multi digit", "see [12]", []int{12}},
		{"zero dropped", "bogus [0] marker but [1] stands", []int{1}},
		{"non numeric ignored", "[a] [1.2] [-3] [2]", []int{2}},
		{"order of first occurrence", "[3] before [1]", []int{3, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCitations(tt.text)
			var numbers []int
			for _, c := range got {
				numbers = append(numbers, c.Number)
			}
			if !reflect.DeepEqual(numbers, tt.want) {
				t.Errorf("ExtractCitations(%q) = %v, want %v", tt.text, numbers, tt.want)
			}
		})
	}
}

func TestValidateCitations(t *testing.T) {
	results := make([]domain.ContextualResult, 3)

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"no citations is trivially valid", "plain answer", true},
		{"all in range", "use [1] and [3]", true},
		{"out of range", "use [4]", false},
		{"mixed", "valid [2] but invalid [7]", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateCitations(tt.text, results); got != tt.want {
				t.Errorf("ValidateCitations(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestValidateCitations_EmptyResults(t *testing.T) {
	if ValidateCitations("cites [1]", nil) {
		t.Error("citation against empty result set must be invalid")
	}
	if !ValidateCitations("no markers", nil) {
		t.Error("citation-free text is valid even with no results")
	}
}

package util

import "testing"

func TestNaturalSortLess(t *testing.T) {
	testCases := []struct {
		s1, s2   string
		expected bool
	}{
		{"Rocky 2", "Rocky 10", true},
		{"Rocky 10", "Rocky 2", false},
		{"2001: A Space Odyssey", "Alien", true},
		{"alien", "Blade Runner", true},
		{"Blade Runner", "alien", false},
		{"Dune", "Dune: Part Two", true},
		{"Dune: Part Two", "Dune", false},
		{"  Heat", "Heat 2", true},
	}
	for _, tc := range testCases {
		if result := NaturalSortLess(tc.s1, tc.s2); result != tc.expected {
			t.Errorf("NaturalSortLess(%q, %q) = %v; want %v", tc.s1, tc.s2, result, tc.expected)
		}
	}
}

func TestCompareTitles_Equal(t *testing.T) {
	testCases := []struct {
		s1, s2 string
	}{
		{"Dune", "Dune"},
		{"dune", "DUNE"},
		{"Se7en", "se7en"},
		{"", ""},
	}
	for _, tc := range testCases {
		if result := CompareTitles(tc.s1, tc.s2); result != 0 {
			t.Errorf("CompareTitles(%q, %q) = %d; want 0", tc.s1, tc.s2, result)
		}
	}
}

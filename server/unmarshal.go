package server

import (
	"fmt"
	"slices"
	"strconv"
)

// unmarshalPointsListFast parses a JSON list of [x, y] pairs. Coordinates
// after the second one are ignored.
func unmarshalPointsListFast(data []byte, result *[][2]float64) error {
	n := len(data)

	*result = slices.Grow(*result, n/16) // n/16 is a heuristic

	i := skipSpace(data, 0)
	if i >= n || data[i] != '[' {
		return fmt.Errorf("invalid format: expected '['")
	}
	i = skipSpace(data, i+1)
	if i < n && data[i] == ']' {
		return expectEnd(data, i+1)
	}

	for {
		point, next, err := parsePoint(data, i)
		if err != nil {
			return err
		}
		*result = append(*result, point)

		i = skipSpace(data, next)
		if i >= n {
			return fmt.Errorf("invalid format: unterminated list")
		}
		switch data[i] {
		case ',':
			i = skipSpace(data, i+1)
		case ']':
			return expectEnd(data, i+1)
		default:
			return fmt.Errorf("invalid format: expected ',' or ']' after point at %d", i)
		}
	}
}

func parsePoint(data []byte, i int) (point [2]float64, next int, err error) {
	n := len(data)
	if i >= n || data[i] != '[' {
		return point, i, fmt.Errorf("invalid format: expected '[' for point at %d", i)
	}
	i++

	for j := range 2 {
		i = skipSpace(data, i)

		start := i
		for i < n && isNumberByte(data[i]) {
			i++
		}
		if start == i {
			return point, i, fmt.Errorf("invalid format: expected number at %d", i)
		}
		num, err := strconv.ParseFloat(string(data[start:i]), 64)
		if err != nil {
			return point, i, fmt.Errorf("invalid number: %w", err)
		}
		point[j] = num

		i = skipSpace(data, i)
		if j == 0 {
			if i >= n || data[i] != ',' {
				return point, i, fmt.Errorf("invalid format: expected ',' between coordinates at %d", i)
			}
			i++
		}
	}

	for i < n && data[i] != ']' {
		i++
	}
	if i >= n {
		return point, i, fmt.Errorf("invalid format: expected ']' at end of point")
	}
	return point, i + 1, nil
}

func expectEnd(data []byte, i int) error {
	if i = skipSpace(data, i); i != len(data) {
		return fmt.Errorf("invalid format: unexpected data after list at %d", i)
	}
	return nil
}

func skipSpace(data []byte, i int) int {
	for i < len(data) && (data[i] == ' ' || data[i] == '\n' || data[i] == '\t' || data[i] == '\r') {
		i++
	}
	return i
}

func isNumberByte(c byte) bool {
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E'
}

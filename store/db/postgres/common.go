package postgres

import (
	"fmt"
	"strings"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

// placeholder returns the n-th positional placeholder ($1, $2, ...).
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns n placeholders starting at $1.
func placeholders(n int) string {
	list := make([]string, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

func listLimit(limit int) int {
	if limit <= 0 {
		return store.DefaultListLimit
	}
	return limit
}

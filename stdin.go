package main

import (
	"bufio"
	"os"
)

// newStdinScanner wraps stdin with a line scanner sized for pasted input
func newStdinScanner() *bufio.Scanner {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	return scanner
}

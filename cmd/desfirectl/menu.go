package main

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// selectMenu renders an arrow-key-navigable menu on a raw terminal and
// returns the chosen index, or -1 on Ctrl-C/EOF.
func selectMenu(prompt string, items []string) int {
	if len(items) == 0 {
		return -1
	}

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error setting raw mode: %v\r\n", err)
		return -1
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	selected := 0

	fmt.Printf("%s\r\n", prompt)
	for i, item := range items {
		if i == selected {
			fmt.Printf("> %s\r\n", item)
		} else {
			fmt.Printf("  %s\r\n", item)
		}
	}

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return -1
		}

		if n == 1 {
			switch buf[0] {
			case 0x0D, 0x0A:
				fmt.Printf("\r\n")
				return selected
			case 0x03:
				term.Restore(int(os.Stdin.Fd()), oldState)
				fmt.Printf("\r\n")
				os.Exit(0)
			}
			continue
		}
		if n != 3 || buf[0] != 0x1B || buf[1] != '[' {
			continue
		}

		needRedraw := false
		switch buf[2] {
		case 'A':
			if selected > 0 {
				selected--
				needRedraw = true
			}
		case 'B':
			if selected < len(items)-1 {
				selected++
				needRedraw = true
			}
		}
		if !needRedraw {
			continue
		}

		fmt.Printf("\033[%dA", len(items))
		for i, item := range items {
			fmt.Print("\033[2K\r")
			if i == selected {
				fmt.Printf("> %s\r\n", item)
			} else {
				fmt.Printf("  %s\r\n", item)
			}
		}
	}
}

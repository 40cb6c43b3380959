package theme

import (
	"fmt"
)

// Banner returns the postwatch terminal banner.
func Banner() string {
	const cyan = "\033[36m"
	const green = "\033[32m"
	const yellow = "\033[33m"
	const reset = "\033[0m"

	art := "" +
		"  " + green + "●" + reset + "  " + cyan + "POSTWATCH" + reset + "\n" +
		yellow + "  ────────────────────────────\n" + reset +
		"  activity monitor for X accounts\n"
	return art
}

// PrintBanner prints the banner to stdout.
func PrintBanner() {
	fmt.Print(Banner())
}

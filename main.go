// Command verifyshot captures a screenshot of the store footer once the
// location modal is out of the way.
//
// Usage:
//
//	verifyshot
//	verifyshot --url http://localhost:3000 --output footer.png
//	verifyshot watch --every 30
//
// See --help for all available options.
package main

import "github.com/ibeckermayer/verifyshot/internal/cli"

func main() {
	cli.Execute()
}

// Command costplan plans cost/benefit optimal action sequences over a
// knowledge base.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		fatal(err)
		os.Exit(1)
	}
}

/*
Copyright © 2026 Maxwell Melo <maxwell.melo0@gmail.com>
*/
package main

import "github.com/maxwellmelo/lighter-backend/cmd"

func main() {
	cmd.Execute()
}

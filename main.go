package main

import "github.com/gaurav-prasanna/payreport/cmd"

func main() {
	cmd.Execute()
}

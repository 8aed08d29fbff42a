// Command researchmesh runs deep research from the terminal or serves the
// research API over HTTP.
package main

func main() {
	Execute()
}

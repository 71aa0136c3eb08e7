// Command knapchat runs the knapchat keyserver and chat clients.
package main

func main() {
	Execute()
}

// Command rollcallctl manages enrollments and reads attendance from a
// running rollcall API.
package main

func main() {
	Execute()
}

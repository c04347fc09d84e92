// Mittari - Multi-Cloud Capacity Inventory
// List. Size. Report.
package main

func main() {
	Execute()
}

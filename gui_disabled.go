//go:build !gui

package main

func initGUI() {
	panic("sage: built without GUI support (rebuild with -tags gui)")
}

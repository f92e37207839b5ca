// Command wasmhost runs core WebAssembly modules inside an explicit
// capability sandbox and snapshots their state.
package main

func main() {
	Execute()
}

// Command ingest loads a CSV export into a document collection: it reads
// the file, cleans it and replaces the destination collection's contents.
package main

func main() {
	Execute()
}

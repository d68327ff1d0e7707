package main

import (
	"fmt"
	"os"

	"github.com/fulldump/goconfig"

	"github.com/jinndb/jinn/jinn"
)

type Configuration struct {
	File string `usage:"path to a jinn database file"`
}

func main() {

	c := Configuration{}
	goconfig.Read(&c)

	if c.File == "" {
		fmt.Println("usage: jinnctl -file <path>")
		os.Exit(1)
	}

	db, err := jinn.Open(c.File)
	if err != nil {
		fmt.Println("ERROR:", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	stats := db.Stats()
	fmt.Printf("file:       %s\n", c.File)
	fmt.Printf("records:    %d\n", stats.Records)
	fmt.Printf("blocks:     %d\n", stats.Blocks)
	fmt.Printf("block size: %d bytes\n", stats.BlockSize)
	fmt.Printf("cached:     %d\n", stats.CacheLen)
	fmt.Printf("compressed: %v\n", stats.Compressed)
}

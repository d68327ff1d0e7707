package jinn

import (
	"fmt"
	"os"
	"time"
)

// environment gives each test a fresh, uniquely-named file and cleans up
// afterwards, mirroring the teacher's collection/environment_test.go.
func environment(f func(filename string)) {
	filename := fmt.Sprintf("temp-%v.jinn", time.Now().UnixNano())
	defer os.Remove(filename)

	f(filename)
}

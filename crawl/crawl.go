package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/nci/eodatasets/crawl/extractor"
	"github.com/nci/eodatasets/gdalio"
	"golang.org/x/crypto/ssh/terminal"
)

func ensure(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

// readPath returns the path argument, or the first line of stdin for "-".
func readPath(arg string, stdin io.Reader) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	scanner := bufio.NewScanner(stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("no path on stdin")
	}
	return scanner.Text(), nil
}

func crawl(path string, describe extractor.CRSDescriber, out io.Writer) error {
	geoFile, err := extractor.ExtractEO3(path, describe)
	if err != nil {
		return err
	}
	data, err := json.Marshal(&geoFile)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func main() {

	if len(os.Args) != 2 {
		log.Fatal("Please provide a path to an EO3 dataset document or '-' for reading from stdin")
	}

	if os.Args[1] == "-" && terminal.IsTerminal(int(os.Stdin.Fd())) {
		log.Fatal("Expected a path piped on stdin")
	}

	path, err := readPath(os.Args[1], os.Stdin)
	ensure(err)

	ensure(crawl(path, gdalio.DescribeCRS, os.Stdout))
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/atinyakov/TalentKeeper/internal/client"
)

var (
	version   string
	buildDate string
)

// main parses command-line flags and starts the interactive shell.
func main() {
	var (
		baseURL      string
		caFile       string
		catalogPath  string
		imagesFolder string
		showVer      bool
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080/morpheus", "server base URL")
	flag.StringVar(&caFile, "ca", "", "path to CA cert of an HTTPS server")
	flag.StringVar(&catalogPath, "catalog", "catalog/catalog.json", "local catalog, relative to the server data dir")
	flag.StringVar(&imagesFolder, "images", "catalog/images", "local images folder, relative to the server data dir")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("TalentKeeper Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	httpClient, err := client.NewHTTPClient(caFile)
	if err != nil {
		log.Fatal(err)
	}
	defer httpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	api := client.NewAPI(httpClient, baseURL)
	if id, err := api.DeviceID(ctx); err != nil {
		log.Printf("cannot read device id: %v", err)
	} else {
		api.SetDeviceID(id)
	}

	client.NewSession(api, os.Stdout, catalogPath, imagesFolder).Run(ctx, os.Stdin)
}

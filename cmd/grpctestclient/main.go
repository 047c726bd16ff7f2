package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"edgeguard/grpc"
)

// A command line utility to send test requests to the edgeguard gRPC service
func main() {
	// Parse command line args
	grpcHostArg := flag.String("grpchost", "localhost:37291", "edgeguard gRPC host to send the request to.")
	uriArg := flag.String("uri", "/index.php?hello=world", "URI to pack into the request. Cannot be used with -rawrequest.")
	sourceArg := flag.String("source", "203.0.113.10", "Client address the request appears to come from.")
	rawRequestFilenameArg := flag.String("rawrequest", "./myrequest.txt", "Path to file containing a full HTTP request. Cannot be used with -uri.")
	dryRunArg := flag.Bool("dryrun", false, "Only evaluate the request, without recording it.")
	flag.Parse()
	wasFlagSet := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { wasFlagSet[f.Name] = true })
	if wasFlagSet["uri"] && wasFlagSet["rawrequest"] {
		log.Fatalf("uri cannot be provided together with rawrequest\n")
	}

	req := &grpc.HTTPRequest{
		Method:     http.MethodGet,
		URI:        *uriArg,
		RemoteAddr: *sourceArg,
		Headers: []grpc.HeaderPair{
			{Key: "User-Agent", Value: "Mozilla/5.0 (X11; Linux x86_64) Gecko/20100101 Firefox/126.0"},
			{Key: "Accept", Value: "text/html"},
			{Key: "Accept-Language", Value: "en-US"},
		},
	}

	// Read raw request from file if rawrequest command line arg was given
	if wasFlagSet["rawrequest"] {
		file, err := os.Open(*rawRequestFilenameArg)
		if err != nil {
			log.Fatalf("%v", err)
		}
		defer file.Close()

		raw, err := http.ReadRequest(bufio.NewReader(file))
		if err != nil {
			log.Fatalf("%v", err)
		}

		req.Method = raw.Method
		req.URI = raw.RequestURI
		req.Headers = nil
		for headername, values := range raw.Header {
			for _, v := range values {
				req.Headers = append(req.Headers, grpc.HeaderPair{Key: headername, Value: v})
			}
		}
	}

	client, err := grpc.NewClient(*grpcHostArg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	call := client.Protect
	if *dryRunArg {
		call = client.Evaluate
	}

	d, err := call(ctx, req)
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}

	log.Printf("decision: %v, reason: %q, attackType: %q, score: %v, remaining: %v", d.Action(), d.Reason, d.AttackType, d.Reputation.Score, d.RateLimit.Remaining)
}

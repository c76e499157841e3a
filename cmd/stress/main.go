package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Hammers the purchase endpoint with concurrent sales of the same part to
// exercise the no-oversell guarantee against a running server.
func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:8080", "server base URL")
		customerID = flag.Int64("customer", 1, "customer id to buy as")
		partID     = flag.Int64("part", 1, "part id to contend on")
		requests   = flag.Int("requests", 50, "number of concurrent purchase attempts")
	)
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	var success, conflict, failed atomic.Int32
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < *requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			body, _ := json.Marshal(map[string]any{
				"customer_id": *customerID,
				"lines": []map[string]any{
					{"part_id": *partID, "quantity": 1},
				},
			})

			resp, err := client.Post(*baseURL+"/api/purchases", "application/json", bytes.NewReader(body))
			if err != nil {
				failed.Add(1)
				return
			}
			defer resp.Body.Close()

			switch resp.StatusCode {
			case http.StatusCreated:
				success.Add(1)
			case http.StatusConflict:
				conflict.Add(1)
			default:
				failed.Add(1)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	log.Printf("finished in %v", elapsed)
	fmt.Printf("requests:           %d\n", *requests)
	fmt.Printf("committed:          %d\n", success.Load())
	fmt.Printf("insufficient stock: %d\n", conflict.Load())
	fmt.Printf("errors:             %d\n", failed.Load())
}

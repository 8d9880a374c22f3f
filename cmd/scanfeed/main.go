package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"smartscan/internal/config"
	"smartscan/internal/decoder"
	"smartscan/internal/queue"
	"smartscan/internal/store"
)

// scanfeed publishes scanned codes to the scan queue consumed by the API's feed decoder.
// Arguments are image files to decode or literal payloads; without arguments it reads one
// payload per line from stdin, which is how keyboard-wedge scanners deliver codes.
func main() {
	images := flag.Bool("images", false, "treat arguments as image files containing QR codes")
	source := flag.String("source", hostname(), "scanner name attached to each message")
	flag.Parse()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Fatalf("redis not reachable at %s", cfg.RedisAddr)
	}
	q := queue.NewRedisQueue(redisClient.Client, cfg.ScanQueueKey)

	if flag.NArg() > 0 {
		for _, arg := range flag.Args() {
			payload := arg
			if *images {
				var err error
				if payload, err = decodeFile(arg); err != nil {
					log.Printf("skip %s: %v", arg, err)
					continue
				}
			}
			publish(ctx, q, *source, payload)
		}
		return
	}

	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		if line := strings.TrimSpace(sc.Text()); line != "" {
			publish(ctx, q, *source, line)
		}
	}
	if err := sc.Err(); err != nil {
		log.Fatalf("read stdin: %v", err)
	}
}

func decodeFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	return decoder.DecodeImage(img)
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "scanfeed"
	}
	return name
}

func publish(ctx context.Context, q queue.Queue, source, payload string) {
	msg := queue.Message{Type: queue.TypeScan, Body: []byte(payload), Source: source}
	if err := q.Publish(ctx, msg); err != nil {
		log.Printf("publish %q failed: %v", payload, err)
		return
	}
	log.Printf("queued %q", payload)
}

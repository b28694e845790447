package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/internal/record"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/kafka"
)

var samplePosts = []string{
	"Great day! #happy http://example.com @friend",
	"RT @newsbot: markets opened flat today",
	"this new phone is absolutely amazing #tech",
	"worst customer service ever, never again",
	"just finished a 10k run #fitness #proud",
	"the weather is ok I guess",
	"can't believe they cancelled the show #sad",
	"loving the new album, every track is a banger",
	"traffic was horrible this morning www.trafficwatch.example",
	"mediocre food, great company",
}

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	count := flag.Int("count", 10, "number of posts to publish")
	interval := flag.Duration("interval", 100*time.Millisecond, "delay between posts; 0 sends one batch")
	text := flag.String("text", "", "publish this text instead of the sample posts")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Printf("publishing %d posts to %s\n", *count, cfg.Kafka.Topic)

	if *interval == 0 {
		events := make([]kafka.Event, 0, *count)
		for i := 0; i < *count; i++ {
			events = append(events, kafka.Event{
				Key:   uuid.NewString(),
				Value: record.RawRecord{Text: pickPost(*text, i)},
			})
		}
		if err := producer.PublishBatch(ctx, events); err != nil {
			fmt.Fprintf(os.Stderr, "batch publish failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("done, published %d posts in one batch\n", len(events))
		return
	}

	for i := 0; i < *count; i++ {
		event := kafka.Event{
			Key:   uuid.NewString(),
			Value: record.RawRecord{Text: pickPost(*text, i)},
		}
		if err := producer.Publish(ctx, event); err != nil {
			fmt.Fprintf(os.Stderr, "publish %d failed: %v\n", i, err)
			os.Exit(1)
		}
		if i < *count-1 {
			time.Sleep(*interval)
		}
	}
	fmt.Printf("done, published %d posts\n", *count)
}

func pickPost(override string, i int) string {
	if override != "" {
		return override
	}
	return samplePosts[i%len(samplePosts)]
}

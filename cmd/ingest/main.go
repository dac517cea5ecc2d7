package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/yungbote/lessongen/internal/app"
	"github.com/yungbote/lessongen/internal/modules/generation/corpus"
)

type pathList []string

func (l *pathList) String() string { return strings.Join(*l, ",") }
func (l *pathList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	var packs pathList
	var validateOnly bool
	flag.Var(&packs, "pack", "corpus pack file, YAML or JSON (repeatable)")
	flag.BoolVar(&validateOnly, "validate", false, "parse and validate packs without embedding")
	flag.Parse()

	if len(packs) == 0 {
		fmt.Println("at least one -pack is required")
		os.Exit(2)
	}

	loaded := make([]*corpus.Pack, 0, len(packs))
	for _, path := range packs {
		p, err := corpus.LoadPackFile(path)
		if err != nil {
			fmt.Printf("load %s: %v\n", path, err)
			os.Exit(1)
		}
		loaded = append(loaded, p)
	}
	if validateOnly {
		for _, p := range loaded {
			fmt.Printf("%s: %d chunks ok\n", p.ID, len(p.Chunks))
		}
		return
	}

	_ = godotenv.Load()
	ctx := context.Background()
	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	failed := false
	for _, p := range loaded {
		res, err := application.Services.Ingester.IngestPack(ctx, p)
		if err != nil {
			fmt.Printf("ingest %s: %v\n", p.ID, err)
			failed = true
			continue
		}
		fmt.Printf("%s: %d chunks, %d new rows, %d vectors indexed\n", res.PackID, res.Chunks, res.Inserted, res.Indexed)
	}
	if failed {
		os.Exit(1)
	}
}

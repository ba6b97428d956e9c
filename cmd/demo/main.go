package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/intellect4all/pagedb/database"
	"github.com/intellect4all/pagedb/query"
	"github.com/intellect4all/pagedb/record"
)

// Config describes the demo database: where it lives and what its
// primary table looks like.
type Config struct {
	DataDir string `yaml:"data_dir"`
	Table   struct {
		Key     ColumnConfig   `yaml:"key"`
		Columns []ColumnConfig `yaml:"columns"`
	} `yaml:"table"`
	SecondaryIndexes []string `yaml:"secondary_indexes"`
}

type ColumnConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

func defaultConfig() Config {
	var c Config
	c.DataDir = "./data-demo"
	c.Table.Key = ColumnConfig{Name: "Key", Type: "int"}
	c.Table.Columns = []ColumnConfig{{Name: "Value", Type: "int"}}
	c.SecondaryIndexes = []string{"Value"}
	return c
}

func loadConfig(path string) (Config, error) {
	if path == "" {
		return defaultConfig(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

func columnSchema(c ColumnConfig) (*record.ColumnSchema, error) {
	cs := &record.ColumnSchema{Name: c.Name}
	switch c.Type {
	case "int":
		cs.Type = record.ColumnTypeInt
	case "uint":
		cs.Type = record.ColumnTypeUint
	default:
		return nil, fmt.Errorf("unknown column type %q", c.Type)
	}
	return cs, nil
}

func buildSchema(c Config) (*record.DatabaseSchema, error) {
	key, err := columnSchema(c.Table.Key)
	if err != nil {
		return nil, err
	}
	ts := &record.TableSchema{Key: key}
	byName := map[string]*record.ColumnSchema{key.Name: key}
	for _, col := range c.Table.Columns {
		cs, err := columnSchema(col)
		if err != nil {
			return nil, err
		}
		ts.Columns = append(ts.Columns, cs)
		byName[cs.Name] = cs
	}
	dbSchema := &record.DatabaseSchema{Table: ts}
	for _, name := range c.SecondaryIndexes {
		cs, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("secondary index on unknown column %q", name)
		}
		dbSchema.SecondaryIndexes = append(dbSchema.SecondaryIndexes, cs)
	}
	return dbSchema, nil
}

func run(ctx context.Context, cfg Config) error {
	dbSchema, err := buildSchema(cfg)
	if err != nil {
		return err
	}
	os.RemoveAll(cfg.DataDir)
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return err
	}
	db, err := database.Create(ctx, cfg.DataDir, dbSchema)
	if err != nil {
		return err
	}

	slog.Info("inserting rows", "count", 50)
	for i := int64(0); i < 50; i++ {
		row := record.Row{Columns: []record.Column{
			{Name: cfg.Table.Key.Name, Value: record.IntValue(i)},
			{Name: cfg.Table.Columns[0].Name, Value: record.IntValue(i * 10)},
		}}
		if err := db.Insert(ctx, row); err != nil {
			return err
		}
	}

	row, err := db.ReadRow(ctx, record.IntValue(25))
	if err != nil {
		return err
	}
	slog.Info("point read", "row", fmt.Sprintf("%+v", row))

	plan := &query.Stage{Select: &query.SelectStage{Dep: &query.Stage{
		Intersect: &query.IntersectStage{
			Left:  &query.Stage{Filter: &query.FilterStage{Column: "Value", Value: record.IntValue(250)}},
			Right: &query.Stage{Filter: &query.FilterStage{Column: "Key", Value: record.IntValue(25)}},
		},
	}}}
	results, err := query.Execute(ctx, db, plan)
	if err != nil {
		return err
	}
	reader := query.NewResultsReader(results)
	for {
		key, row, err := reader.NextKeyRow(ctx)
		if err != nil {
			if query.IsEndOfStream(err) {
				break
			}
			return err
		}
		slog.Info("query result", "key", key, "row", fmt.Sprintf("%+v", row))
	}

	deleted, err := db.Delete(ctx, record.IntValue(25))
	if err != nil {
		return err
	}
	slog.Info("deleted", "row", fmt.Sprintf("%+v", deleted))

	return db.Flush(ctx)
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("unable to load config", "err", err)
		os.Exit(1)
	}
	if err := run(context.Background(), cfg); err != nil {
		slog.Error("demo failed", "err", err)
		os.Exit(1)
	}
}

package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/holiman/uint256"

	"lumenchain/config"
	"lumenchain/core/state"
	"lumenchain/core/writeset"
	"lumenchain/observability"
	"lumenchain/observability/logging"
	"lumenchain/storage"
)

// changeSet is the JSON description of one transaction's abstract effects.
type changeSet struct {
	Resources    []slotChange        `json:"resources"`
	Modules      []slotChange        `json:"modules"`
	Groups       []groupChange       `json:"groups"`
	Accumulators []accumulatorChange `json:"accumulators"`
}

type slotChange struct {
	Key    string `json:"key"`
	Op     string `json:"op"`
	Data   string `json:"data,omitempty"`
	Legacy bool   `json:"legacy,omitempty"`
}

type groupChange struct {
	Key     string      `json:"key"`
	Changes []tagChange `json:"changes"`
}

type tagChange struct {
	Address    string   `json:"address"`
	Module     string   `json:"module"`
	Name       string   `json:"name"`
	TypeParams []string `json:"typeParams,omitempty"`
	Op         string   `json:"op"`
	Data       string   `json:"data,omitempty"`
}

type accumulatorChange struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type reportOp struct {
	Key      string `json:"key"`
	Kind     string `json:"kind"`
	Data     string `json:"data,omitempty"`
	Deposit  uint64 `json:"deposit,omitempty"`
	Stamped  uint64 `json:"stampedMicros,omitempty"`
	PostSize uint64 `json:"postSize,omitempty"`
}

type auditReport struct {
	Ops    []reportOp `json:"ops"`
	Digest string     `json:"digest"`
}

func main() {
	configPath := flag.String("config", "./config.toml", "Path to engine configuration file")
	changesPath := flag.String("changes", "", "Path to the JSON change-set to replay")
	inMemory := flag.Bool("memory", false, "Run against an empty in-memory state instead of DataDir")
	flag.Parse()

	logger := logging.Setup("writeset-audit")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *changesPath == "" {
		logger.Error("missing -changes flag")
		os.Exit(1)
	}

	var db storage.Database
	if *inMemory {
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("failed to open state database", "datadir", cfg.DataDir, "error", err)
			os.Exit(1)
		}
		db = ldb
	}
	defer db.Close()

	raw, err := os.ReadFile(*changesPath)
	if err != nil {
		logger.Error("failed to read change-set", "error", err)
		os.Exit(1)
	}
	var changes changeSet
	if err := json.Unmarshal(raw, &changes); err != nil {
		logger.Error("failed to decode change-set", "error", err)
		os.Exit(1)
	}

	view := state.NewView(db)
	converter := writeset.NewConverter(view, cfg.SlotMetadataEnabled)
	metrics := observability.Conversion()

	report, err := replay(converter, cfg, changes, metrics)
	if err != nil {
		logger.Error("conversion failed", "error", err)
		os.Exit(1)
	}

	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Error("failed to encode report", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(output))
}

func replay(converter *writeset.Converter, cfg *config.Config, changes changeSet, metrics *observability.ConversionMetrics) (*auditReport, error) {
	var entries []writeset.Entry
	var ops []reportOp

	record := func(key writeset.StateKey, op writeset.WriteOp, postSize uint64) {
		entries = append(entries, writeset.Entry{Key: key, Op: op})
		reported := reportOp{Key: key.String(), Kind: op.Kind().String(), PostSize: postSize}
		if data, ok := op.Bytes(); ok {
			reported.Data = hex.EncodeToString(data)
		}
		if m, ok := op.Metadata(); ok {
			reported.Deposit = m.Deposit
			reported.Stamped = m.CreationTimeMicros
		}
		ops = append(ops, reported)
	}

	for _, change := range changes.Resources {
		effect, err := parseEffect(change.Op, change.Data)
		if err != nil {
			return nil, err
		}
		op, _, err := converter.ConvertResource(writeset.KeyFromString(change.Key), effect, change.Legacy)
		metrics.Observe("resource", err)
		if err != nil {
			return nil, err
		}
		record(writeset.KeyFromString(change.Key), op, 0)
	}

	for _, change := range changes.Modules {
		effect, err := parseEffect(change.Op, change.Data)
		if err != nil {
			return nil, err
		}
		legacy := change.Legacy || cfg.LegacyModuleCreationAsModification
		op, err := converter.ConvertModule(writeset.KeyFromString(change.Key), effect, legacy)
		metrics.Observe("module", err)
		if err != nil {
			return nil, err
		}
		record(writeset.KeyFromString(change.Key), op, 0)
	}

	for _, group := range changes.Groups {
		batch := make(map[writeset.Tag]writeset.Effect, len(group.Changes))
		for _, change := range group.Changes {
			tag, err := parseTag(change)
			if err != nil {
				return nil, err
			}
			effect, err := parseEffect(change.Op, change.Data)
			if err != nil {
				return nil, err
			}
			batch[tag] = effect
		}
		key := writeset.KeyFromString(group.Key)
		converted, err := converter.ConvertGroup(key, batch)
		metrics.Observe("group", err)
		if err != nil {
			return nil, err
		}
		record(key, converted.MetadataOp(), converted.PostSize())
	}

	for _, change := range changes.Accumulators {
		value, err := uint256.FromDecimal(change.Value)
		if err != nil {
			return nil, fmt.Errorf("accumulator %s: bad value: %w", change.Key, err)
		}
		key := writeset.KeyFromString(change.Key)
		op, err := converter.ConvertAccumulatorValue(key, value)
		metrics.Observe("accumulator", err)
		if err != nil {
			return nil, err
		}
		record(key, op, 0)
	}

	digest := writeset.Digest(entries)
	return &auditReport{Ops: ops, Digest: hex.EncodeToString(digest[:])}, nil
}

func parseEffect(op, data string) (writeset.Effect, error) {
	payload, err := hex.DecodeString(data)
	if err != nil {
		return writeset.Effect{}, fmt.Errorf("bad payload hex: %w", err)
	}
	switch op {
	case "new":
		return writeset.NewValue(payload), nil
	case "modify":
		return writeset.ModifyValue(payload), nil
	case "delete":
		return writeset.DeleteValue(), nil
	}
	return writeset.Effect{}, fmt.Errorf("unknown effect op %q", op)
}

func parseTag(change tagChange) (writeset.Tag, error) {
	raw, err := hex.DecodeString(change.Address)
	if err != nil || len(raw) != 20 {
		return writeset.Tag{}, fmt.Errorf("bad tag address %q", change.Address)
	}
	tag := writeset.Tag{
		Module:     change.Module,
		Name:       change.Name,
		TypeParams: writeset.CanonicalTypeParams(change.TypeParams...),
	}
	copy(tag.Address[:], raw)
	return tag, nil
}

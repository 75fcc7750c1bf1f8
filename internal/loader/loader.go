// Package loader reads serialized genotypes from a directory and decodes them
// into agent factories.
package loader

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"crossmatch/internal/mapper"
	"crossmatch/internal/match"
	"crossmatch/internal/model"
	"crossmatch/internal/tournament"
)

var (
	ErrEmptyFile      = errors.New("empty genotype file")
	ErrInvalidFormat  = errors.New("invalid genotype format")
	ErrNonFiniteValue = errors.New("genotype holds a non-finite value")
)

// Loaded is one decoded genotype file.
type Loaded struct {
	Path    string
	Factory *mapper.Factory
}

// Skipped is a file that did not produce a factory.
type Skipped struct {
	Path string
	Err  error
}

func (s Skipped) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", s.Path), slog.String("err", s.Err.Error()))
}

// LoadDirectory decodes every regular file of dir, in name order. Symlinks
// are followed. Files that cannot be read or decoded, including arity
// mismatches and dangling links, are logged and returned as skipped. Only a directory that cannot be listed is an error.
func LoadDirectory(dir string, codec mapper.Codec, logger *slog.Logger) ([]Loaded, []Skipped, error) {
	if codec == nil {
		return nil, nil, errors.New("codec is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("list genotypes: %w", err)
	}

	var loaded []Loaded
	var skipped []Skipped
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		regular, err := isRegularFile(entry, path)
		if err == nil && !regular {
			continue
		}
		var factory *mapper.Factory
		if err == nil {
			factory, err = loadFile(path, codec)
		}
		if err != nil {
			skip := Skipped{Path: path, Err: err}
			logger.Warn("genotype_skipped", "file", skip)
			skipped = append(skipped, skip)
			continue
		}
		loaded = append(loaded, Loaded{Path: path, Factory: factory})
	}
	logger.Info("genotypes_loaded", "dir", dir, "loaded", len(loaded), "skipped", len(skipped))
	return loaded, skipped, nil
}

func isRegularFile(entry os.DirEntry, path string) (bool, error) {
	if entry.Type()&os.ModeSymlink == 0 {
		return entry.Type().IsRegular(), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// LoadTeam loads dir and wraps the decoded factories, in file order, into a
// team.
func LoadTeam(name, dir string, codec mapper.Codec, logger *slog.Logger) (tournament.Team, []Skipped, error) {
	loaded, skipped, err := LoadDirectory(dir, codec, logger)
	if err != nil {
		return tournament.Team{}, nil, err
	}
	factories := make([]match.Factory, len(loaded))
	for i, l := range loaded {
		factories[i] = l.Factory
	}
	team, err := tournament.NewTeam(name, factories)
	if err != nil {
		return tournament.Team{}, skipped, err
	}
	return team, skipped, nil
}

func loadFile(path string, codec mapper.Codec) (*mapper.Factory, error) {
	genotype, err := ReadGenotypeFile(path)
	if err != nil {
		return nil, err
	}
	return codec.Decode(genotype)
}

// ReadGenotypeFile decodes the first line of path.
func ReadGenotypeFile(path string) (model.Genotype, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, ErrEmptyFile
	}
	line := strings.TrimSpace(scanner.Text())
	if line == "" {
		return nil, ErrEmptyFile
	}
	return DecodeGenotype(line)
}

// DecodeGenotype accepts a JSON array of numbers, either bare or base64
// encoded.
func DecodeGenotype(line string) (model.Genotype, error) {
	line = strings.TrimSpace(line)
	raw := []byte(line)
	if !strings.HasPrefix(line, "[") {
		decoded, err := base64.StdEncoding.DecodeString(line)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		raw = decoded
	}
	var values []float64
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if values == nil {
		return nil, fmt.Errorf("%w: not an array", ErrInvalidFormat)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w at index %d", ErrNonFiniteValue, i)
		}
	}
	return model.Genotype(values), nil
}

// EncodeGenotype is the base64 form written by WriteGenotypeFile.
func EncodeGenotype(genotype model.Genotype) (string, error) {
	values := []float64(genotype)
	if values == nil {
		values = []float64{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func WriteGenotypeFile(path string, genotype model.Genotype) error {
	line, err := EncodeGenotype(genotype)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(line+"\n"), 0o644)
}

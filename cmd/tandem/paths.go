package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/tandemml/tandem/internal/model"
	"github.com/tandemml/tandem/internal/vocab"
)

const (
	envTandemModel     = "TANDEM_MODEL"
	envTandemModelsDir = "TANDEM_MODELS_DIR"
)

// stdinIsTTY is a small seam for tests.
var stdinIsTTY = isTTY

// resolveModelPath picks the checkpoint to load: explicit flag, then
// TANDEM_MODEL, then the config file, then discovery in the models
// directory (flag, then TANDEM_MODELS_DIR, then config file).
func resolveModelPath(modelFlag, dirFlag string, cfg Config, stdin io.Reader, stderr io.Writer) (string, error) {
	modelFlag = strings.TrimSpace(modelFlag)
	if modelFlag != "" {
		return filepath.Clean(modelFlag), nil
	}
	if env := strings.TrimSpace(os.Getenv(envTandemModel)); env != "" {
		return filepath.Clean(env), nil
	}
	if m := strings.TrimSpace(cfg.Model); m != "" {
		return filepath.Clean(m), nil
	}

	dir := strings.TrimSpace(dirFlag)
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv(envTandemModelsDir))
	}
	if dir == "" {
		dir = strings.TrimSpace(cfg.ModelsDir)
	}
	if dir == "" {
		return "", fmt.Errorf("--model or --models-dir is required unless %s is set", envTandemModel)
	}

	models, err := discoverModels(dir)
	if err != nil {
		return "", err
	}
	switch len(models) {
	case 0:
		return "", fmt.Errorf("no .ecf checkpoints found in %s", dir)
	case 1:
		_, _ = fmt.Fprintf(stderr, "using checkpoint %s\n", models[0])
		return models[0], nil
	default:
		if !stdinIsTTY() {
			return "", fmt.Errorf(
				"multiple checkpoints found in %s but stdin is not interactive; set --model",
				dir,
			)
		}
		return selectModelInteractively(dir, models, stdin, stderr)
	}
}

// loadCheckpoint resolves the checkpoint path and loads the model with
// its vocabulary. Commands that tokenize require the vocab section.
func loadCheckpoint(cfg Config) (*model.Siamese, *vocab.Vocab, string, error) {
	path, err := resolveModelPath(modelPath, modelsDir, cfg, os.Stdin, os.Stderr)
	if err != nil {
		return nil, nil, "", fmt.Errorf("resolve model: %w", err)
	}
	m, voc, err := model.Load(path)
	if err != nil {
		return nil, nil, "", fmt.Errorf("load %s: %w", path, err)
	}
	if voc == nil {
		return nil, nil, "", fmt.Errorf("%s has no vocabulary section; rebuild it with tandem init", path)
	}
	return m, voc, path, nil
}

func discoverModels(dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("models directory is empty")
	}
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("models path is not a directory: %s", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	models := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".ecf") {
			continue
		}
		models = append(models, filepath.Join(dir, name))
	}
	sort.Strings(models)
	return models, nil
}

func selectModelInteractively(dir string, models []string, stdin io.Reader, stderr io.Writer) (string, error) {
	if len(models) == 0 {
		return "", fmt.Errorf("no checkpoints available in %s", dir)
	}

	_, _ = fmt.Fprintf(stderr, "select a checkpoint from %s\n", dir)
	for i, m := range models {
		_, _ = fmt.Fprintf(stderr, "%d. %s\n", i+1, modelDisplayName(dir, m))
	}

	reader := bufio.NewReader(stdin)
	for {
		_, _ = fmt.Fprintf(stderr, "enter selection [1-%d]: ", len(models))
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if errors.Is(err, io.EOF) {
				return "", errors.New("no selection provided on stdin; set --model")
			}
			continue
		}

		idx, convErr := strconv.Atoi(line)
		if convErr != nil || idx < 1 || idx > len(models) {
			_, _ = fmt.Fprintf(stderr, "invalid selection %q\n", line)
			if errors.Is(err, io.EOF) {
				return "", errors.New("invalid selection provided on stdin; set --model")
			}
			continue
		}
		return models[idx-1], nil
	}
}

func modelDisplayName(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return filepath.Base(path)
	}
	return rel
}

func isTTY() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

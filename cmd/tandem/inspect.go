package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/tandemml/tandem/internal/model"
	"github.com/tandemml/tandem/internal/vocab"
	"github.com/tandemml/tandem/pkg/ecf"
)

func inspectCmd() *cli.Command {
	var (
		path          string
		showAll       bool
		showSections  bool
		showTensors   bool
		showVocab     bool
		showTree      bool
		showModelInfo bool
		vocabLimit    int
		tensorFilter  string
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect the contents of an .ecf checkpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "path to .ecf file",
				Destination: &path,
				Required:    true,
			},
			&cli.BoolFlag{Name: "all", Usage: "show every detail section", Destination: &showAll},
			&cli.BoolFlag{Name: "sections", Usage: "show section directory", Destination: &showSections},
			&cli.BoolFlag{Name: "tensors", Usage: "list tensor index", Destination: &showTensors},
			&cli.BoolFlag{Name: "vocab", Usage: "list vocabulary entries", Destination: &showVocab},
			&cli.BoolFlag{Name: "tree", Usage: "print the layer tree", Destination: &showTree},
			&cli.BoolFlag{Name: "modelinfo", Usage: "print raw model info JSON", Destination: &showModelInfo},
			&cli.IntFlag{Name: "vocab-limit", Usage: "limit vocab listing (0 = no limit)", Value: 50, Destination: &vocabLimit},
			&cli.StringFlag{Name: "tensor-filter", Usage: "substring filter for tensor listing", Destination: &tensorFilter},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx

			if showAll {
				showSections = true
				showTensors = true
				showVocab = true
				showTree = true
				showModelInfo = true
				if vocabLimit == 50 {
					vocabLimit = 0
				}
			}

			stat, err := os.Stat(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: stat model path %q: %v", path, err), 1)
			}
			if stat.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".ecf") {
				return cli.Exit("error: tandem inspect only supports .ecf files", 1)
			}

			ef, err := ecf.Open(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open ecf: %v", err), 1)
			}
			defer func() { _ = ef.Close() }()

			fmt.Printf("ECF Inspect: %s\n", path)
			fmt.Printf("File: %s (%s)\n", filepath.Base(path), formatBytes(uint64(stat.Size())))
			printHeader(ef.Header)

			info, err := ef.ModelInfo()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: model info: %v", err), 1)
			}
			printModelSummary(info)

			voc := readVocabSection(ef)
			printVocabSummary(voc)
			printTensorSummary(ef.Tensors())

			if showSections {
				printSectionDirectory(ef.Sections)
			}
			if showTensors {
				printTensorIndex(ef.Tensors(), tensorFilter)
			}
			if showTree {
				printLayerTree(info)
			}
			if showVocab {
				printVocabEntries(voc, vocabLimit)
			}
			if showModelInfo {
				printRawSection("Model Info", ef.SectionData(ef.Section(ecf.SectionModelInfo)))
			}

			return nil
		},
	}
}

func printHeader(h *ecf.Header) {
	if h == nil {
		return
	}
	fmt.Printf("ECF Header: v%d.%d sections=%d header=%dB\n",
		h.Major, h.Minor, h.SectionCount, h.HeaderSize)
}

func printModelSummary(info *ecf.ModelInfo) {
	section("Model")
	row("arch", info.Arch)
	rowInt("vocab_size", info.VocabSize)
	rowInt("embed_dim", info.EmbedDim)
	rowInt("hidden_dim", info.HiddenDim)
	row("seed", fmt.Sprintf("%d", info.Seed))
	row("fingerprint", info.Fingerprint)
	if !info.CreatedAt.IsZero() {
		row("created_at", info.CreatedAt.Format(time.RFC3339))
	}
}

// readVocabSection decodes the vocab section, or returns nil when the
// container has none or it does not parse.
func readVocabSection(ef *ecf.File) *vocab.Vocab {
	s := ef.Section(ecf.SectionVocab)
	if s == nil {
		return nil
	}
	var voc vocab.Vocab
	if err := json.Unmarshal(ef.SectionData(s), &voc); err != nil {
		return nil
	}
	return &voc
}

func printVocabSummary(voc *vocab.Vocab) {
	section("Vocabulary")
	if voc == nil {
		fmt.Println("(no vocabulary section)")
		return
	}
	rowInt("tokens", voc.Size())
	row("pad", fmt.Sprintf("%q (id=%d)", vocab.PadToken, vocab.PadID))
	row("unk", fmt.Sprintf("%q (id=%d)", vocab.UnkToken, vocab.UnkID))
}

func printTensorSummary(tensors []ecf.TensorInfo) {
	section("Tensor Summary")
	if len(tensors) == 0 {
		fmt.Println("(no tensor index section)")
		return
	}
	var size uint64
	var elems int
	for i := range tensors {
		size += tensors[i].DataSize
		elems += tensors[i].Elems()
	}
	rowInt("tensors", len(tensors))
	rowInt("parameters", elems)
	row("data", formatBytes(size))
}

func printSectionDirectory(sections []ecf.Section) {
	section("Sections")
	for _, s := range sections {
		name := sectionTypeName(ecf.SectionType(s.Type))
		fmt.Printf("%-16s v%-2d off=%-10d size=%s\n", name, s.Version, s.Offset, formatBytes(s.Size))
	}
}

func printTensorIndex(tensors []ecf.TensorInfo, filter string) {
	section("Tensor Index")
	shown := 0
	for i := range tensors {
		ti := &tensors[i]
		if filter != "" && !strings.Contains(ti.Name, filter) {
			continue
		}
		fmt.Printf("%-20s %6d x %-6d off=%-10d %s\n",
			ti.Name, ti.Rows, ti.Cols, ti.DataOff, formatBytes(ti.DataSize))
		shown++
	}
	if shown == 0 {
		fmt.Println("(none)")
	}
}

// printLayerTree rebuilds the architecture from the metadata alone, so
// it works even when tensor payloads are damaged.
func printLayerTree(info *ecf.ModelInfo) {
	section("Layer Tree")
	m, err := model.New(model.Config{
		VocabSize: info.VocabSize,
		EmbedDim:  info.EmbedDim,
		HiddenDim: info.HiddenDim,
		Seed:      info.Seed,
	})
	if err != nil {
		fmt.Printf("(cannot rebuild architecture: %v)\n", err)
		return
	}
	fmt.Println(m.Describe())
}

func printVocabEntries(voc *vocab.Vocab, limit int) {
	section("Vocab Entries")
	if voc == nil {
		fmt.Println("(no vocabulary section)")
		return
	}
	toks := voc.Tokens()
	shown := 0
	for id, tok := range toks {
		fmt.Printf("%6d  %s\n", id, tok)
		shown++
		if limit > 0 && shown >= limit {
			break
		}
	}
	if limit > 0 && shown < len(toks) {
		fmt.Printf("... (%d shown of %d)\n", shown, len(toks))
	}
}

func printRawSection(name string, data []byte) {
	section(name)
	if len(data) == 0 {
		fmt.Println("(missing)")
		return
	}
	fmt.Println(string(data))
}

func section(title string) {
	line := strings.Repeat("-", len(title)+8)
	fmt.Printf("\n%s\n--- %s ---\n%s\n", line, title, line)
}

func row(label, value string) {
	if value == "" {
		return
	}
	fmt.Printf("%-16s %s\n", label+":", value)
}

func rowInt(label string, v int) {
	if v == 0 {
		return
	}
	row(label, fmt.Sprintf("%d", v))
}

func sectionTypeName(t ecf.SectionType) string {
	switch t {
	case ecf.SectionModelInfo:
		return "ModelInfo"
	case ecf.SectionVocab:
		return "Vocab"
	case ecf.SectionTensorIndex:
		return "TensorIndex"
	case ecf.SectionTensorData:
		return "TensorData"
	default:
		return fmt.Sprintf("Unknown(0x%04x)", uint32(t))
	}
}

func formatBytes(b uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.2f GiB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.2f MiB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.2f KiB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

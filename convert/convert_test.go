package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"hmlt/common"
	"hmlt/config"
	"hmlt/hashlist"
	"hmlt/rpkg"
	"hmlt/state"
)

const sampleDocument = `{
	"$schema": "https://tonytools.win/schemas/dlge.schema.json",
	"hash": "00123456789ABCDE",
	"DITL": "00AAAAAAAAAAAAAA",
	"CLNG": "00BBBBBBBBBBBBBB",
	"rootContainer": {
		"type": "Sequence",
		"containers": [
			{
				"type": "WavFile",
				"wavName": "0000ABCD",
				"soundtag": "In-World",
				"defaultWav": null,
				"defaultFfx": null,
				"languages": {"en": "Hello", "fr": "Bonjour"},
			},
			{
				"type": "Random",
				"containers": [
					{"type": "WavFile", "wavName": "0000ABCE", "weight": 0.5, "soundtag": "In-World", "defaultWav": null, "defaultFfx": null, "languages": {"en": "One"}},
					{"type": "WavFile", "wavName": "0000ABCF", "weight": 0.5, "soundtag": "In-World", "defaultWav": null, "defaultFfx": null, "languages": {"en": "Two"}},
				],
			},
		],
	},
}`

const sampleFlags = `{
	"$schema": "https://tonytools.win/schemas/clng.schema.json",
	"hash": "00BBBBBBBBBBBBBB",
	"languages": {"xx": false, "en": true, "fr": true}
}`

func testSymbols() *hashlist.HashList {
	symbols := hashlist.New()
	symbols.Tags = hashlist.NewSection(map[uint32]string{hashlist.Content("In-World"): "In-World"})
	return symbols
}

// setupTestEnv creates a test environment with proper context and logger
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = logger
	env.Cfg = cfg
	env.Symbols = testSymbols()
	return ctx, env
}

func conversionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "type"},
		&cli.StringFlag{Name: "meta"},
		&cli.StringFlag{Name: "game"},
		&cli.StringFlag{Name: "lang-map"},
		&cli.StringFlag{Name: "default-locale"},
		&cli.BoolFlag{Name: "hex-precision"},
		&cli.BoolFlag{Name: "overwrite"},
		&cli.BoolFlag{Name: "recursive"},
	}
}

func runCommand(ctx context.Context, action cli.ActionFunc, args ...string) error {
	cmd := &cli.Command{Name: "test", Flags: conversionFlags(), Action: action}
	return cmd.Run(ctx, append([]string{"test"}, args...))
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(name, data, 0644); err != nil {
		t.Fatal(err)
	}
	return name
}

func readFile(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return data
}

// rebuildSample produces binary resource with metadata from sample document.
func rebuildSample(t *testing.T, env *state.LocalEnv) ([]byte, []byte) {
	t.Helper()
	conv, err := newConverters(&env.Cfg.Conversion, env.Symbols).get(common.ResourceTypeDlge)
	if err != nil {
		t.Fatalf("get() error = %v", err)
	}
	res, err := conv.encode([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}
	meta, err := res.Meta.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	return res.File, meta
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		name string
		want common.ResourceType
		ok   bool
	}{
		{"LINE.DLGE", common.ResourceTypeDlge, true},
		{"line.dlge.json", common.ResourceTypeDlge, true},
		{"00AA.DITL", common.ResourceTypeDitl, true},
		{"00AA.clng.JSON", common.ResourceTypeClng, true},
		{"LINE.DLGE.meta.JSON", 0, false},
		{"readme.txt", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := detectType(tt.name)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Errorf("detectType(%q) = %v, %v", tt.name, got, ok)
			}
		})
	}
}

func TestResolveType(t *testing.T) {
	meta := &rpkg.ResourceMeta{HashResourceType: "DITL"}

	if rt, err := resolveType("clng", "x.DLGE", meta); err != nil || rt != common.ResourceTypeClng {
		t.Errorf("explicit = %v, %v", rt, err)
	}
	if rt, err := resolveType("", "x.DLGE", meta); err != nil || rt != common.ResourceTypeDlge {
		t.Errorf("by name = %v, %v", rt, err)
	}
	if rt, err := resolveType("", "00ABCDEF", meta); err != nil || rt != common.ResourceTypeDitl {
		t.Errorf("by meta = %v, %v", rt, err)
	}
	if _, err := resolveType("", "00ABCDEF", nil); !errors.Is(err, errUnknownType) {
		t.Errorf("unknown = %v", err)
	}
	if _, err := resolveType("wav", "x.DLGE", nil); err == nil {
		t.Error("expected error for bad explicit type")
	}
}

func TestNames(t *testing.T) {
	if got := documentName("/in/LINE.DLGE", common.ResourceTypeDlge); got != "LINE.dlge.json" {
		t.Errorf("documentName() = %q", got)
	}
	if got := resourceName("/in/LINE.dlge.json", common.ResourceTypeDlge); got != "LINE.DLGE" {
		t.Errorf("resourceName() = %q", got)
	}
	if got := metaName("LINE.DLGE"); got != "LINE.DLGE.meta.JSON" {
		t.Errorf("metaName() = %q", got)
	}
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in", "LINE.DLGE")

	tests := []struct {
		name string
		dst  string
		want string
	}{
		{"next to source", "", filepath.Join(dir, "in", "out.json")},
		{"existing directory", dir, filepath.Join(dir, "out.json")},
		{"trailing separator", filepath.Join(dir, "new") + string(filepath.Separator), filepath.Join(dir, "new", "out.json")},
		{"file name", filepath.Join(dir, "custom.json"), filepath.Join(dir, "custom.json")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outputPath(src, tt.dst, "out.json"); got != tt.want {
				t.Errorf("outputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindMeta(t *testing.T) {
	dir := t.TempDir()
	res := writeFile(t, filepath.Join(dir, "LINE.DLGE"), nil)

	if _, err := findMeta(res, ""); err == nil {
		t.Error("expected error when metadata is absent")
	}
	lower := writeFile(t, res+".meta.json", nil)
	if got, err := findMeta(res, ""); err != nil || got != lower {
		t.Errorf("findMeta() = %q, %v", got, err)
	}
	if got, _ := findMeta(res, "/x/y.meta"); got != "/x/y.meta" {
		t.Errorf("explicit findMeta() = %q", got)
	}
}

func TestConvertersCache(t *testing.T) {
	_, env := setupTestEnv(t)
	convs := newConverters(&env.Cfg.Conversion, env.Symbols)

	a, err := convs.get(common.ResourceTypeClng)
	if err != nil {
		t.Fatalf("get() error = %v", err)
	}
	b, _ := convs.get(common.ResourceTypeClng)
	if a != b {
		t.Error("converter was not cached")
	}
	if _, err := convs.get(common.ResourceType(42)); err == nil {
		t.Error("expected error for unsupported type")
	}

	env.Cfg.Conversion.LangMap = "en,en"
	if _, err := newConverters(&env.Cfg.Conversion, env.Symbols).get(common.ResourceTypeDlge); err == nil {
		t.Error("expected error for bad language map")
	}
}

func TestRebuildAndConvert(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "LINE.dlge.json"), []byte(sampleDocument))
	out := filepath.Join(dir, "out") + string(filepath.Separator)

	if err := runCommand(ctx, Rebuild, src, out); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	res := filepath.Join(dir, "out", "LINE.DLGE")
	data := readFile(t, res)
	meta, err := rpkg.ParseResourceMeta(readFile(t, metaName(res)))
	if err != nil {
		t.Fatalf("ParseResourceMeta() error = %v", err)
	}
	if meta.HashResourceType != "DLGE" || meta.HashSizeFinal != uint32(len(data)) {
		t.Errorf("meta = %+v", meta)
	}

	if err := runCommand(ctx, Convert, res); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	doc := readFile(t, filepath.Join(dir, "out", "LINE.dlge.json"))
	for _, want := range []string{`"soundtag": "In-World"`, `"en": "Hello"`, `"type": "Random"`} {
		if !bytes.Contains(doc, []byte(want)) {
			t.Errorf("document lacks %s:\n%s", want, doc)
		}
	}

	// second rebuild goes to explicit file names
	again := filepath.Join(dir, "again.bin")
	againMeta := filepath.Join(dir, "again.meta")
	if err := runCommand(ctx, Rebuild, "--meta", againMeta, filepath.Join(dir, "out", "LINE.dlge.json"), again); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if !bytes.Equal(readFile(t, again), data) {
		t.Error("rebuilt resource is not identical")
	}
	readFile(t, againMeta)
}

func TestOverwrite(t *testing.T) {
	ctx, env := setupTestEnv(t)
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "FLAGS.clng.json"), []byte(sampleFlags))
	writeFile(t, filepath.Join(dir, "FLAGS.CLNG"), []byte("old"))

	err := runCommand(ctx, Rebuild, src)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("Rebuild() error = %v, want existing output error", err)
	}

	if err := runCommand(ctx, Rebuild, "--overwrite", src); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if !env.Cfg.Conversion.Overwrite {
		t.Error("flag did not override configuration")
	}
	if got := readFile(t, filepath.Join(dir, "FLAGS.CLNG")); !bytes.Equal(got, []byte{0, 1, 1}) {
		t.Errorf("flags = %v", got)
	}
}

func TestApplyFlags(t *testing.T) {
	ctx, env := setupTestEnv(t)
	check := func(_ context.Context, cmd *cli.Command) error {
		return applyFlags(cmd, &env.Cfg.Conversion)
	}

	if err := runCommand(ctx, check, "--game", "h2", "--lang-map", "xx,en", "--default-locale", "fr", "--hex-precision"); err != nil {
		t.Fatalf("applyFlags() error = %v", err)
	}
	conf := env.Cfg.Conversion
	if conf.Game != common.VersionH2 || conf.LangMap != "xx,en" || conf.DefaultLocale != "fr" || !conf.HexPrecision {
		t.Errorf("conversion = %+v", conf)
	}

	if err := runCommand(ctx, check, "--game", "h4"); err == nil {
		t.Error("expected error for unknown game")
	}
	if err := runCommand(ctx, check, "--type", "wav"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestConvertMissingMeta(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	src := writeFile(t, filepath.Join(t.TempDir(), "LINE.DLGE"), []byte{0})

	err := runCommand(ctx, Convert, src)
	if err == nil || !strings.Contains(err.Error(), "--meta") {
		t.Errorf("Convert() error = %v", err)
	}
	if err := runCommand(ctx, Convert); err == nil {
		t.Error("expected error without source")
	}
}

func TestVerify(t *testing.T) {
	ctx, env := setupTestEnv(t)
	data, meta := rebuildSample(t, env)
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "LINE.DLGE"), data)
	writeFile(t, metaName(src), meta)

	if err := runCommand(ctx, Verify, src); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	// without symbols sound tags come back as hex and hash differently
	env.Symbols = hashlist.New()
	err := runCommand(ctx, Verify, src)
	if !errors.Is(err, errMismatch) {
		t.Errorf("Verify() error = %v, want mismatch", err)
	}
}

func TestHexDiff(t *testing.T) {
	a := bytes.Repeat([]byte{0x11}, 48)
	b := bytes.Clone(a)
	b[20] = 0x22

	diff, changed := hexDiff(a, b)
	if changed != 2 {
		t.Errorf("changed = %d, want 2\n%s", changed, diff)
	}
	if !strings.HasPrefix(diff, "- 00000010") || !strings.Contains(diff, "+ 00000010") {
		t.Errorf("diff =\n%s", diff)
	}
	if _, changed := hexDiff(a, a); changed != 0 {
		t.Errorf("identical input changed = %d", changed)
	}
}

func TestBatchDirectory(t *testing.T) {
	ctx, env := setupTestEnv(t)
	data, meta := rebuildSample(t, env)

	src := t.TempDir()
	for _, name := range []string{"L10.DLGE", "L2.DLGE", filepath.Join("sub", "L1.DLGE")} {
		res := writeFile(t, filepath.Join(src, name), data)
		writeFile(t, metaName(res), meta)
	}
	writeFile(t, filepath.Join(src, "BROKEN.DLGE"), []byte{1, 2, 3})
	writeFile(t, filepath.Join(src, "notes.txt"), []byte("skip me"))

	dst := t.TempDir()
	err := runCommand(ctx, BatchConvert, src, dst)
	if err == nil || !strings.Contains(err.Error(), "BROKEN.DLGE") {
		t.Fatalf("BatchConvert() error = %v, want failure of broken file", err)
	}
	for _, name := range []string{"L10.dlge.json", "L2.dlge.json"} {
		readFile(t, filepath.Join(dst, name))
	}
	if _, err := os.Stat(filepath.Join(dst, "sub", "L1.dlge.json")); !os.IsNotExist(err) {
		t.Error("subdirectory processed without --recursive")
	}

	if err := os.Remove(filepath.Join(src, "BROKEN.DLGE")); err != nil {
		t.Fatal(err)
	}
	if err := runCommand(ctx, BatchConvert, "--recursive", "--overwrite", src, dst); err != nil {
		t.Fatalf("BatchConvert() error = %v", err)
	}
	readFile(t, filepath.Join(dst, "sub", "L1.dlge.json"))

	out := t.TempDir()
	if err := runCommand(ctx, BatchRebuild, "--recursive", dst, out); err != nil {
		t.Fatalf("BatchRebuild() error = %v", err)
	}
	if got := readFile(t, filepath.Join(out, "sub", "L1.DLGE")); !bytes.Equal(got, data) {
		t.Error("batch rebuild is not identical")
	}
	readFile(t, filepath.Join(out, "L2.DLGE.meta.JSON"))
}

func TestBatchArchive(t *testing.T) {
	ctx, env := setupTestEnv(t)
	data, meta := rebuildSample(t, env)

	arc := filepath.Join(t.TempDir(), "lines.zip")
	f, err := os.Create(arc)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, content := range map[string][]byte{
		"lines/A.DLGE":           data,
		"lines/A.DLGE.meta.JSON": meta,
		"lines/B.DLGE":           data,
		"lines/C.dlge.json":      []byte(sampleDocument),
		"FLAGS.clng.json":        []byte(sampleFlags),
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	dst := t.TempDir()
	err = runCommand(ctx, BatchConvert, arc, dst)
	if err == nil || !strings.Contains(err.Error(), "lines/B.DLGE") {
		t.Fatalf("BatchConvert() error = %v, want missing metadata for B", err)
	}
	readFile(t, filepath.Join(dst, "lines", "A.dlge.json"))

	if err := runCommand(ctx, BatchRebuild, "--type", "clng", arc, dst); err != nil {
		t.Fatalf("BatchRebuild() error = %v", err)
	}
	readFile(t, filepath.Join(dst, "FLAGS.CLNG"))
	if _, err := os.Stat(filepath.Join(dst, "lines", "C.DLGE")); !os.IsNotExist(err) {
		t.Error("type filter was ignored")
	}
}

func TestBatchSource(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	dir := t.TempDir()
	plain := writeFile(t, filepath.Join(dir, "plain.DLGE"), []byte("not a zip"))

	if err := runCommand(ctx, BatchConvert, plain, dir); err == nil {
		t.Error("expected error for non archive file")
	}
	if err := runCommand(ctx, BatchConvert, dir); err == nil {
		t.Error("expected error without destination")
	}
	if err := runCommand(ctx, BatchConvert, filepath.Join(dir, "missing"), dir); err == nil {
		t.Error("expected error for missing source")
	}
}

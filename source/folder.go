package source

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/zeebo/xxh3"
	"gopkg.in/yaml.v3"

	"github.com/etnz/books"
	"github.com/etnz/books/internal/logger"
)

// AccountFile is the name of the account descriptor of a source directory.
const AccountFile = "account.yaml"

// accountFile is the content of an account descriptor.
type accountFile struct {
	StartValue decimal.Decimal `yaml:"start_value"`
	Format     Format          `yaml:"format"`
}

// Folder is a books.Provider over a folder of account directories.
type Folder struct {
	root string
}

var _ books.Provider = (*Folder)(nil)

// NewFolder returns the provider of the accounts under root.
func NewFolder(root string) *Folder {
	return &Folder{root: root}
}

// Accounts returns the names of the directories holding an account file.
func (f *Folder) Accounts(ctx context.Context) ([]string, error) {
	var names []string
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != AccountFile {
			return nil
		}
		rel, err := filepath.Rel(f.root, filepath.Dir(p))
		if err != nil {
			return err
		}
		if rel == "." {
			return fmt.Errorf("%s at the root of %q: accounts live in sub-directories", AccountFile, f.root)
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not scan source folder %q: %w", f.root, err)
	}
	sort.Strings(names)
	return names, nil
}

func (f *Folder) dir(name string) (string, error) {
	if name == "" || !filepath.IsLocal(name) {
		return "", fmt.Errorf("invalid account name %q", name)
	}
	return filepath.Join(f.root, filepath.FromSlash(name)), nil
}

// readAccount reads the account descriptor and the export file names, in
// name order.
func (f *Folder) readAccount(name string) (accountFile, []byte, []string, error) {
	var acc accountFile
	dir, err := f.dir(name)
	if err != nil {
		return acc, nil, nil, err
	}
	content, err := os.ReadFile(filepath.Join(dir, AccountFile))
	if err != nil {
		return acc, nil, nil, fmt.Errorf("could not read account %q: %w", name, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&acc); err != nil {
		return acc, nil, nil, fmt.Errorf("could not decode %s of account %q: %w", AccountFile, name, err)
	}
	if err := acc.Format.Validate(); err != nil {
		return acc, nil, nil, fmt.Errorf("invalid format of account %q: %w", name, err)
	}
	acc.Format = acc.Format.withDefaults()

	files, err := filepath.Glob(filepath.Join(dir, acc.Format.Glob))
	if err != nil {
		return acc, nil, nil, fmt.Errorf("invalid glob %q of account %q: %w", acc.Format.Glob, name, err)
	}
	sort.Strings(files)
	return acc, content, files, nil
}

// Fingerprint hashes the account file and the export files, names and content.
func (f *Folder) Fingerprint(ctx context.Context, name string) (string, error) {
	_, content, files, err := f.readAccount(name)
	if err != nil {
		return "", err
	}
	h := xxh3.New()
	h.Write(content)
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("could not read %q: %w", file, err)
		}
		sum := xxh3.Hash128(data).Bytes()
		h.WriteString(filepath.Base(file))
		h.Write(sum[:])
	}
	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:]), nil
}

// Load reads the export files of an account. Any record that cannot be read
// makes the whole account fail with a books.DataError.
func (f *Folder) Load(ctx context.Context, name string) (*books.SourceBatch, error) {
	log := logger.FromContext(ctx).With().Str("account", name).Logger()

	acc, _, files, err := f.readAccount(name)
	if err != nil {
		return nil, err
	}
	fp, err := f.Fingerprint(ctx, name)
	if err != nil {
		return nil, err
	}

	var raws []books.RawTransaction
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		list, err := acc.Format.readFile(file)
		if err != nil {
			return nil, &books.DataError{Account: name, Index: -1, Err: err}
		}
		log.Debug().Str("file", filepath.Base(file)).Int("records", len(list)).Msg("read export")
		raws = append(raws, list...)
	}
	if len(files) == 0 {
		log.Warn().Str("glob", acc.Format.Glob).Msg("no export file")
	}

	sort.SliceStable(raws, func(i, j int) bool { return raws[i].Timestamp < raws[j].Timestamp })
	return &books.SourceBatch{Name: name, StartValue: acc.StartValue, Raw: raws, Fingerprint: fp}, nil
}

func (f Format) readFile(path string) ([]books.RawTransaction, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	name := filepath.Base(path)
	switch f.Kind {
	case KindCSV:
		return f.readCSV(name, r)
	case KindJSON:
		return f.readJSON(name, r)
	}
	return nil, errors.New("unknown format kind " + f.Kind)
}

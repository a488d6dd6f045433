// card_store.go implements the card-set store. Unlike users and learning
// records, card sets live on the filesystem as line-delimited .txt files:
// <root>/<name>.txt are public sets and <root>/<username>/<name>.txt are a
// user's private sets. The upload flow, the public/private precedence and
// the "first comma splits word from definition" line format are observable
// behaviour and are kept exactly as specified.
package repository

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// CardEntry is one word/definition pair of a card set, in file order.
type CardEntry struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
}

// CardInfo summarizes a card set for listings.
type CardInfo struct {
	Name      string `json:"name"`
	WordCount int    `json:"word_count"`
}

// CardStore reads and writes card sets under a root directory.
type CardStore struct {
	Root string
}

// NewCardStore creates the root directory if needed and returns the store.
func NewCardStore(root string) (*CardStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &CardStore{Root: root}, nil
}

// EnsureUserDir provisions the private namespace for a user. Registration
// calls this so a fresh account can upload private cards right away.
func (s *CardStore) EnsureUserDir(username string) error {
	return os.MkdirAll(filepath.Join(s.Root, username), 0o755)
}

// RemoveUserDir deletes a user's private namespace with everything in it.
func (s *CardStore) RemoveUserDir(username string) error {
	return os.RemoveAll(filepath.Join(s.Root, username))
}

func (s *CardStore) publicPath(name string) string {
	return filepath.Join(s.Root, name+".txt")
}

func (s *CardStore) privatePath(username, name string) string {
	return filepath.Join(s.Root, username, name+".txt")
}

// List enumerates the public scope and the user's private scope, counting
// non-empty lines per file as the word count.
func (s *CardStore) List(username string) (public, private []CardInfo, err error) {
	public, err = s.listDir(s.Root)
	if err != nil {
		return nil, nil, err
	}
	private, err = s.listDir(filepath.Join(s.Root, username))
	if err != nil {
		return nil, nil, err
	}
	return public, private, nil
}

func (s *CardStore) listDir(dir string) ([]CardInfo, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []CardInfo{}, nil
	}
	if err != nil {
		return nil, err
	}
	infos := []CardInfo{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		infos = append(infos, CardInfo{
			Name:      strings.TrimSuffix(e.Name(), ".txt"),
			WordCount: countWords(string(data)),
		})
	}
	return infos, nil
}

func countWords(content string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// Get returns the parsed entries of a card. The user's private scope wins
// over the public scope when both hold a card with the same name.
func (s *CardStore) Get(name, username string) ([]CardEntry, error) {
	for _, path := range []string{s.privatePath(username, name), s.publicPath(name)} {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return ParseCard(string(data)), nil
	}
	return nil, ErrCardNotFound
}

// ParseCard splits card text into entries: one entry per line, the first
// comma separating word from definition. Lines without a comma are
// silently dropped, matching the upload format's tolerance for stray
// blank lines and headers.
func ParseCard(content string) []CardEntry {
	entries := []CardEntry{}
	for _, line := range strings.Split(content, "\n") {
		word, definition, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		entries = append(entries, CardEntry{
			Word:       strings.TrimSpace(word),
			Definition: strings.TrimSpace(definition),
		})
	}
	return entries
}

// SerializeCard renders entries back into the canonical file format.
// ParseCard(SerializeCard(e)) == e as long as no field embeds a comma or
// newline.
func SerializeCard(entries []CardEntry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Word)
		b.WriteByte(',')
		b.WriteString(e.Definition)
		b.WriteByte('\n')
	}
	return b.String()
}

// Save writes card content verbatim to the chosen scope. The file is
// created with O_EXCL, so the duplicate-name check and the create are one
// atomic operation and concurrent saves cannot overwrite each other.
func (s *CardStore) Save(name, content, username string, public bool) error {
	var path string
	if public {
		path = s.publicPath(name)
	} else {
		if err := s.EnsureUserDir(username); err != nil {
			return err
		}
		path = s.privatePath(username, name)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrCardExists
		}
		return err
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return err
	}
	return nil
}

// DeletePrivate removes a card from the user's private scope only. Used
// by the self-service delete endpoint, which must not be able to take
// down a public card of the same name.
func (s *CardStore) DeletePrivate(name, username string) error {
	err := os.Remove(s.privatePath(username, name))
	if errors.Is(err, os.ErrNotExist) {
		return ErrCardNotFound
	}
	return err
}

// Delete removes a card, checking the public path first and then the
// user's private path. ErrCardNotFound when neither exists.
func (s *CardStore) Delete(name, username string) error {
	for _, path := range []string{s.publicPath(name), s.privatePath(username, name)} {
		err := os.Remove(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return err
	}
	return ErrCardNotFound
}

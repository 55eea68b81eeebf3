package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
)

type csvKind int

const (
	kindUnknown csvKind = iota
	kindRanking
	kindKnowledge
)

func kindOf(filename string) csvKind {
	switch {
	case strings.Contains(filename, "matrice") || strings.Contains(filename, "ranking"):
		return kindRanking
	case strings.Contains(filename, "base") || strings.Contains(filename, "connaissance"):
		return kindKnowledge
	default:
		return kindUnknown
	}
}

type row map[string]string

// get returns the column value, or def when the column does not exist in this file.
func (r row) get(column string, def string) string {
	if v, ok := r[column]; ok {
		return v
	}
	return def
}

func rankingSentence(r row) string {
	return fmt.Sprintf("ANALYSE SCORE MTC : Syndrome '%s'. Plante recommandée : %s (%s). Score de pertinence : %s.",
		r.get("nom_syndrome", ""), r.get("nom_latin", ""), r.get("nom_chinois", ""), r.get("score_role", "0"))
}

func knowledgeSentence(r row) string {
	return fmt.Sprintf("DÉTAIL CLINIQUE : Syndrome '%s'. Formule '%s'. Plante : %s. Rôle : %s (Score %s). Description : %s",
		r.get("nom_syndrome", ""), r.get("nom_formule", ""), r.get("nom_latin", ""),
		r.get("role_formule", "Inconnu"), r.get("score_role", ""), r.get("description", ""))
}

// ReadKnowledgeBase turns every CSV of dir into knowledge base entries, files in name order.
// A file that cannot be read is reported through skip and left out.
func ReadKnowledgeBase(dir string, skip func(file string, err error)) ([]documentModel.IndexEntry, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	entries := []documentModel.IndexEntry{}
	for _, path := range files {
		name := filepath.Base(path)
		fileEntries, err := readCSV(path, name)
		if err != nil {
			skip(name, err)
			continue
		}
		entries = append(entries, fileEntries...)
	}
	return entries, nil
}

func readCSV(path string, name string) ([]documentModel.IndexEntry, error) {
	kind := kindOf(name)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var entries []documentModel.IndexEntry
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		r := make(row, len(header))
		for i, column := range header {
			if i < len(record) {
				r[column] = record[i]
			}
		}

		var sentence string
		switch kind {
		case kindRanking:
			sentence = rankingSentence(r)
		case kindKnowledge:
			sentence = knowledgeSentence(r)
		default:
			continue
		}
		if isBlank(sentence) {
			continue
		}
		entries = append(entries, documentModel.IndexEntry{
			DocId:       config.KnowledgeBaseID,
			TextContent: sentence,
			Source:      name,
			Type:        config.KnowledgeBaseType,
		})
	}
	return entries, nil
}

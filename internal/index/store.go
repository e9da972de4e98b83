package index

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/models"
)

const (
	storeVersion = 1
	// embEncoding tags the float encoding scheme of persisted embeddings.
	embEncoding = "f32le+base64"
)

type storeMeta struct {
	ChunkSize    int    `json:"chunkSize"`
	ChunkOverlap int    `json:"chunkOverlap"`
	ModelName    string `json:"modelName"`
	SavedAt      string `json:"savedAt"`
	EmbEncoding  string `json:"embEncoding"`
}

type storeFile struct {
	Version int        `json:"version"`
	Meta    storeMeta  `json:"meta"`
	Docs    []storeDoc `json:"docs"`
}

// storeDoc is the on-disk chunk shape. Required fields use pointers so that
// missing keys are distinguishable from zero values and malformed records can
// be dropped instead of crashing the load.
type storeDoc struct {
	ID        *string         `json:"id"`
	Path      *string         `json:"path"`
	Chunk     *int            `json:"chunk"`
	Text      *string         `json:"text"`
	FileSize  *int64          `json:"fileSize"`
	LineCount int             `json:"lineCount"`
	Emb       json.RawMessage `json:"emb"`
}

// LoadStore reads the persisted corpus at path. It returns nil (caller must
// cold-rebuild) when the path is unset or missing, the file is not parseable,
// the shape is wrong, or the stored chunking/model metadata does not match the
// current configuration. Individual malformed records are dropped silently.
func LoadStore(path string, chunkSize, chunkOverlap int, modelName string, logger *zap.Logger) []*models.Doc {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var f storeFile
	if err := json.Unmarshal(data, &f); err != nil {
		if logger != nil {
			logger.Warn("index store unparseable, cold rebuild", zap.String("path", path), zap.Error(err))
		}
		return nil
	}
	if f.Docs == nil {
		if logger != nil {
			logger.Warn("index store missing docs, cold rebuild", zap.String("path", path))
		}
		return nil
	}
	if f.Meta.ChunkSize != chunkSize || f.Meta.ChunkOverlap != chunkOverlap {
		if logger != nil {
			logger.Info("index store chunking mismatch, cold rebuild",
				zap.Int("stored_size", f.Meta.ChunkSize),
				zap.Int("stored_overlap", f.Meta.ChunkOverlap),
				zap.Int("size", chunkSize),
				zap.Int("overlap", chunkOverlap))
		}
		return nil
	}
	if f.Meta.ModelName != "" && f.Meta.ModelName != modelName {
		if logger != nil {
			logger.Info("index store model mismatch, cold rebuild",
				zap.String("stored", f.Meta.ModelName), zap.String("model", modelName))
		}
		return nil
	}
	docs := make([]*models.Doc, 0, len(f.Docs))
	for _, sd := range f.Docs {
		if sd.ID == nil || sd.Path == nil || sd.Chunk == nil || sd.Text == nil || sd.FileSize == nil {
			continue
		}
		emb, ok := decodeEmbedding(sd.Emb)
		if !ok {
			continue
		}
		docs = append(docs, &models.Doc{
			ID:        *sd.ID,
			Path:      *sd.Path,
			Chunk:     *sd.Chunk,
			Text:      *sd.Text,
			FileSize:  *sd.FileSize,
			LineCount: sd.LineCount,
			Embedding: emb,
		})
	}
	return docs
}

// SaveStore writes the corpus snapshot to path. Failures are logged, never
// fatal: the in-memory corpus stays valid either way.
func SaveStore(path string, docs []*models.Doc, chunkSize, chunkOverlap int, modelName string, logger *zap.Logger) {
	if path == "" {
		return
	}
	f := storeFile{
		Version: storeVersion,
		Meta: storeMeta{
			ChunkSize:    chunkSize,
			ChunkOverlap: chunkOverlap,
			ModelName:    modelName,
			SavedAt:      time.Now().UTC().Format(time.RFC3339),
			EmbEncoding:  embEncoding,
		},
		Docs: make([]storeDoc, 0, len(docs)),
	}
	for _, d := range docs {
		id, p, text, size := d.ID, d.Path, d.Text, d.FileSize
		chunk := d.Chunk
		emb, err := json.Marshal(encodeEmbedding(d.Embedding))
		if err != nil {
			continue
		}
		f.Docs = append(f.Docs, storeDoc{
			ID:        &id,
			Path:      &p,
			Chunk:     &chunk,
			Text:      &text,
			FileSize:  &size,
			LineCount: d.LineCount,
			Emb:       emb,
		})
	}
	data, err := json.Marshal(f)
	if err != nil {
		if logger != nil {
			logger.Warn("index store marshal failed", zap.Error(err))
		}
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		if logger != nil {
			logger.Warn("index store dir create failed", zap.Error(err))
		}
		return
	}
	if err := os.WriteFile(path, data, 0600); err != nil && logger != nil {
		logger.Warn("index store write failed", zap.String("path", path), zap.Error(err))
	}
}

// encodeEmbedding encodes the vector as base64 little-endian float32.
// A missing embedding serializes as the empty string sentinel.
func encodeEmbedding(emb []float32) string {
	if len(emb) == 0 {
		return ""
	}
	buf := make([]byte, len(emb)*4)
	for i, v := range emb {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(v))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// decodeEmbedding accepts either a base64 little-endian float32 string or a
// plain JSON number array. An empty or undecodable value reports !ok and the
// record is dropped by the caller.
func decodeEmbedding(raw json.RawMessage) ([]float32, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil, false
		}
		buf, err := base64.StdEncoding.DecodeString(s)
		if err != nil || len(buf) == 0 || len(buf)%4 != 0 {
			return nil, false
		}
		emb := make([]float32, len(buf)/4)
		for i := range emb {
			emb[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4 : (i+1)*4]))
		}
		return emb, true
	}
	var nums []float64
	if err := json.Unmarshal(raw, &nums); err == nil && len(nums) > 0 {
		emb := make([]float32, len(nums))
		for i, v := range nums {
			emb[i] = float32(v)
		}
		return emb, true
	}
	return nil, false
}

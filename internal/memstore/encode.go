package memstore

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"encoding/json"
	"time"

	"github.com/codegraph-ai/codegraph-core/internal/memory"
)

// CurrentSchemaVersion is the binary framing version every fresh write
// uses; see §4.8/§4.9.
const CurrentSchemaVersion uint32 = 2

// recordDTO mirrors memory.Record in a form both gob (v2) and
// encoding/json (legacy v1) can (de)serialize without exposing gob
// wire details on the domain type itself.
type recordDTO struct {
	ID         string
	Kind       memory.Kind
	Title      string
	Content    string
	Temporal   memory.BiTemporal
	CodeLinks  []memory.CodeLink
	Embedding  []float32
	Tags       []string
	Source     memory.Source
	Confidence float64
}

func toDTO(r *memory.Record) recordDTO {
	return recordDTO{
		ID:         r.ID,
		Kind:       r.Kind,
		Title:      r.Title,
		Content:    r.Content,
		Temporal:   r.Temporal,
		CodeLinks:  r.CodeLinks,
		Embedding:  r.Embedding,
		Tags:       r.TagList(),
		Source:     r.Source,
		Confidence: r.Confidence,
	}
}

func fromDTO(d recordDTO) *memory.Record {
	tags := make(map[string]struct{}, len(d.Tags))
	for _, t := range d.Tags {
		tags[t] = struct{}{}
	}
	return &memory.Record{
		ID:         d.ID,
		Kind:       d.Kind,
		Title:      d.Title,
		Content:    d.Content,
		Temporal:   d.Temporal,
		CodeLinks:  d.CodeLinks,
		Embedding:  d.Embedding,
		Tags:       tags,
		Source:     d.Source,
		Confidence: d.Confidence,
	}
}

// encodeRecordV2 frames a record as [4-byte LE version=2][gob payload].
func encodeRecordV2(r *memory.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(toDTO(r)); err != nil {
		return nil, err
	}
	out := make([]byte, 4+buf.Len())
	binary.LittleEndian.PutUint32(out[:4], CurrentSchemaVersion)
	copy(out[4:], buf.Bytes())
	return out, nil
}

// decodeRecordV2 decodes a v2-framed record. Returns false if the
// leading 4 bytes don't identify a v2 frame.
func decodeRecordV2(raw []byte) (*memory.Record, bool) {
	if len(raw) < 4 {
		return nil, false
	}
	if binary.LittleEndian.Uint32(raw[:4]) != CurrentSchemaVersion {
		return nil, false
	}
	var dto recordDTO
	if err := gob.NewDecoder(bytes.NewReader(raw[4:])).Decode(&dto); err != nil {
		return nil, false
	}
	return fromDTO(dto), true
}

// v1 JSON wire shape, kept separate from recordDTO since the legacy
// format had no version prefix and serialized BiTemporal timestamps as
// RFC3339 strings rather than gob's native time.Time encoding.
type recordV1 struct {
	ID         string            `json:"id"`
	Kind       memory.Kind       `json:"kind"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	ValidAt    time.Time         `json:"valid_at"`
	InvalidAt  *time.Time        `json:"invalid_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	CodeLinks  []memory.CodeLink `json:"code_links"`
	Embedding  []float32         `json:"embedding,omitempty"`
	Tags       []string          `json:"tags"`
	Source     memory.Source     `json:"source"`
	Confidence float64           `json:"confidence"`
}

// decodeRecordV1 attempts to parse raw as the legacy text framing.
func decodeRecordV1(raw []byte) (*memory.Record, bool) {
	var v1 recordV1
	if err := json.Unmarshal(raw, &v1); err != nil {
		return nil, false
	}
	if v1.ID == "" || v1.Title == "" {
		return nil, false
	}
	tags := make(map[string]struct{}, len(v1.Tags))
	for _, t := range v1.Tags {
		tags[t] = struct{}{}
	}
	return &memory.Record{
		ID:      v1.ID,
		Kind:    v1.Kind,
		Title:   v1.Title,
		Content: v1.Content,
		Temporal: memory.BiTemporal{
			ValidAt:   v1.ValidAt,
			InvalidAt: v1.InvalidAt,
			CreatedAt: v1.CreatedAt,
		},
		CodeLinks:  v1.CodeLinks,
		Embedding:  v1.Embedding,
		Tags:       tags,
		Source:     v1.Source,
		Confidence: v1.Confidence,
	}, true
}

// encodeVectorV2 frames a vector the same way as a record.
func encodeVectorV2(v []float32) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	out := make([]byte, 4+buf.Len())
	binary.LittleEndian.PutUint32(out[:4], CurrentSchemaVersion)
	copy(out[4:], buf.Bytes())
	return out, nil
}

func decodeVectorV2(raw []byte) ([]float32, bool) {
	if len(raw) < 4 || binary.LittleEndian.Uint32(raw[:4]) != CurrentSchemaVersion {
		return nil, false
	}
	var v []float32
	if err := gob.NewDecoder(bytes.NewReader(raw[4:])).Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

func encodeVersion(v uint32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, v)
	return out
}

func decodeVersion(raw []byte) (uint32, bool) {
	if len(raw) != 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(raw), true
}

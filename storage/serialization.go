// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

// CollectionInfo is the persisted description of a collection.
type CollectionInfo struct {
	Name       string    `json:"name"`
	VectorSize int       `json:"vector_size"`
	Distance   Distance  `json:"distance"`
	CreatedAt  time.Time `json:"created_at"`
}

// MarshalPoint serializes a Point to bytes.
func MarshalPoint(p *Point) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalPoint deserializes a Point from bytes.
func UnmarshalPoint(data []byte) (*Point, error) {
	var p Point
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if p.Payload == nil {
		p.Payload = map[string]any{}
	}
	return &p, nil
}

// MarshalCollection serializes CollectionInfo to bytes.
func MarshalCollection(info *CollectionInfo) ([]byte, error) {
	data, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalCollection deserializes CollectionInfo from bytes.
func UnmarshalCollection(data []byte) (*CollectionInfo, error) {
	var info CollectionInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &info, nil
}

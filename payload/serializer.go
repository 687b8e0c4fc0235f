// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package payload

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// Serializer renders one document into w as a complete, self-contained
// textual representation. Implementations must not emit the record
// separator (a raw newline); the Body owns record framing.
type Serializer interface {
	Serialize(w io.Writer, doc any) error
}

// JSONSerializer renders documents as single-line JSON. String contents
// are escaped by the encoder, so the output never contains a raw newline.
type JSONSerializer struct{}

// Serialize implements Serializer.
func (JSONSerializer) Serialize(w io.Writer, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("payload: serialize document: %w", err)
	}
	_, err = w.Write(data)
	return err
}

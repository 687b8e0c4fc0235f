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
	"github.com/cespare/xxhash/v2"
)

// Fingerprint64 runs the digest traversal over an xxhash digest and
// returns the 64-bit fingerprint of the canonical body bytes. Cheaper than
// a cryptographic digest when only change detection or dedup is needed.
func (b *Body) Fingerprint64() (uint64, error) {
	d := xxhash.New()
	if err := b.FillDigest(d); err != nil {
		return 0, err
	}
	return d.Sum64(), nil
}

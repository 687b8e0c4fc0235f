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

import "errors"

var (
	// ErrContentNotReadable is returned by Body.Content. A Body only
	// produces bytes through ProduceContent; a pull-style reader would
	// silently defeat the backpressure handling, so the accessor fails
	// loudly instead and tests catch unintended usage.
	ErrContentNotReadable = errors.New("payload: content is produced only through ProduceContent, not readable as a stream")

	// ErrContentNotWritable is returned by Body.WriteTo for the same
	// reason as ErrContentNotReadable.
	ErrContentNotWritable = errors.New("payload: content is produced only through ProduceContent, not writable in one shot")

	// ErrNilSink is returned when ProduceContent is called without a sink.
	ErrNilSink = errors.New("payload: nil sink")
)

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

package pagewriter

import (
	"fmt"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	pagesQueuedCounter   otelmetric.Int64Counter
	sinkWritesCounter    otelmetric.Int64Counter
	bytesAcceptedCounter otelmetric.Int64Counter
	backpressureCounter  otelmetric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/bulkbody/internal/pagewriter")

	var err error
	pagesQueuedCounter, err = meter.Int64Counter(
		"bulkbody.pagewriter.pages.queued",
		otelmetric.WithDescription("Number of full pages queued because the sink was pushing back"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create pages.queued counter: %w", err))
	}

	sinkWritesCounter, err = meter.Int64Counter(
		"bulkbody.pagewriter.sink.writes",
		otelmetric.WithDescription("Number of non-empty write attempts made against the sink"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create sink.writes counter: %w", err))
	}

	bytesAcceptedCounter, err = meter.Int64Counter(
		"bulkbody.pagewriter.bytes.accepted",
		otelmetric.WithDescription("Number of bytes the sink has accepted"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create bytes.accepted counter: %w", err))
	}

	backpressureCounter, err = meter.Int64Counter(
		"bulkbody.pagewriter.backpressure.events",
		otelmetric.WithDescription("Number of times the sink rejected or partially accepted an offered page"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create backpressure.events counter: %w", err))
	}
}

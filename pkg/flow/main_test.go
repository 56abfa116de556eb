// SPDX-License-Identifier: Apache-2.0

package flow_test

import (
	"testing"

	"github.com/schemaflow/schemaflow/pkg/testutils"
)

func TestMain(m *testing.M) {
	testutils.SharedTestMain(m)
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scenario

import (
	"context"
	"testing"
	"time"

	"code.hybscloud.com/mtask"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllSorted(t *testing.T) {
	names := make([]string, 0)
	for _, s := range All() {
		names = append(names, s.Name)
		assert.NotEmpty(t, s.Description)
	}
	assert.Equal(t, []string{"cont", "expr", "nested", "stop", "sum"}, names)
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("chaos")
	assert.Error(t, err)
}

func TestScenariosComplete(t *testing.T) {
	for _, name := range []string{"sum", "nested", "cont", "expr"} {
		t.Run(name, func(t *testing.T) {
			m, err := mtask.New(4, 16, nil)
			require.NoError(t, err)
			defer m.Shutdown()
			s, err := Lookup(name)
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			res, err := s.Run(ctx, m)
			require.NoError(t, err)
			assert.True(t, res.Complete)
			assert.Positive(t, res.Tasks)
			assert.Equal(t, name, res.Scenario)
		})
	}
}

func TestStopScenario(t *testing.T) {
	m, err := mtask.New(2, 4, nil)
	require.NoError(t, err)
	s, err := Lookup("stop")
	require.NoError(t, err)
	res, err := s.Run(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, m.Stopped())
	assert.LessOrEqual(t, res.Tasks, int64(10000))
}

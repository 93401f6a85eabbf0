package fn_test

import (
	"testing"

	"github.com/plgd-dev/coapnet/pkg/fn"
	"github.com/stretchr/testify/require"
)

func TestFuncListRunsInReverseOrder(t *testing.T) {
	var fns fn.FuncList
	var order []string
	fns.Add(func() { order = append(order, "open socket") })
	fns.Add(nil)
	fns.Add(func() { order = append(order, "start loop") })

	require.Len(t, fns, 2)
	fns.Execute()
	require.Equal(t, []string{"start loop", "open socket"}, order)
}

func TestEmptyFuncList(t *testing.T) {
	var fns fn.FuncList
	require.NotPanics(t, fns.Execute)
}

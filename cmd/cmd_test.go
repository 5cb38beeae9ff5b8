package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/goldwatch/internal/dispatcher"
	"github.com/JakeFAU/goldwatch/internal/goldprice"
)

type fakeApp struct {
	price       float64
	checkErr    error
	runErr      error
	report      dispatcher.Report
	closed      bool
	ran         bool
	notifyCalls int
	current     float64
	previous    *float64
}

func (f *fakeApp) Close()              { f.closed = true }
func (f *fakeApp) Logger() *zap.Logger { return zap.NewNop() }

func (f *fakeApp) CheckPrice(context.Context) (float64, error) {
	return f.price, f.checkErr
}

func (f *fakeApp) Notify(_ context.Context, current float64, previous *float64) dispatcher.Report {
	f.notifyCalls++
	f.current = current
	f.previous = previous
	return f.report
}

func (f *fakeApp) Run(context.Context) error {
	f.ran = true
	return f.runErr
}

// useFakeApp swaps the factory for the duration of a test. Tests using it
// must not run in parallel.
func useFakeApp(t *testing.T, fake *fakeApp, factoryErr error) *string {
	t.Helper()
	orig := newApp
	var gotPath string
	newApp = func(_ context.Context, path string) (App, error) {
		gotPath = path
		if factoryErr != nil {
			return nil, factoryErr
		}
		return fake, nil
	}
	t.Cleanup(func() {
		newApp = orig
		cfgFile = ""
	})
	return &gotPath
}

func execute(args ...string) (string, error) {
	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheckPrintsPrice(t *testing.T) {
	fake := &fakeApp{price: 3550.5}
	path := useFakeApp(t, fake, nil)

	out, err := execute("check", "--config", "prod.yaml")

	require.NoError(t, err)
	require.Equal(t, "3550.5\n", out)
	require.Equal(t, "prod.yaml", *path)
	require.True(t, fake.closed)
}

func TestCheckReportsExtractionError(t *testing.T) {
	fake := &fakeApp{checkErr: fmt.Errorf("%w: anchor not found", goldprice.ErrExtraction)}
	useFakeApp(t, fake, nil)

	_, err := execute("check")

	require.ErrorIs(t, err, goldprice.ErrExtraction)
}

func TestConfigErrorIsFatal(t *testing.T) {
	useFakeApp(t, nil, fmt.Errorf("%w: poll.interval_seconds must be > 0", goldprice.ErrConfig))

	_, err := execute("watch")

	require.ErrorIs(t, err, goldprice.ErrConfig)
}

func TestWatchTreatsCancellationAsCleanExit(t *testing.T) {
	fake := &fakeApp{runErr: context.Canceled}
	useFakeApp(t, fake, nil)

	_, err := execute("watch")

	require.NoError(t, err)
	require.True(t, fake.ran)
	require.True(t, fake.closed)
}

func TestWatchPropagatesRunError(t *testing.T) {
	fake := &fakeApp{runErr: errors.New("status server: address in use")}
	useFakeApp(t, fake, nil)

	_, err := execute("watch")

	require.ErrorContains(t, err, "address in use")
}

func TestNotifyFirstObservation(t *testing.T) {
	fake := &fakeApp{report: dispatcher.Report{Delivered: 2}}
	useFakeApp(t, fake, nil)

	out, err := execute("notify", "--price", "3550")

	require.NoError(t, err)
	require.Equal(t, "delivered=2 failed=0\n", out)
	require.Equal(t, 3550.0, fake.current)
	require.Nil(t, fake.previous)
}

func TestNotifyWithPreviousAndFailure(t *testing.T) {
	fake := &fakeApp{report: dispatcher.Report{
		Delivered: 1,
		Failures:  []dispatcher.TargetFailure{{Err: goldprice.ErrDelivery}},
	}}
	useFakeApp(t, fake, nil)

	out, err := execute("notify", "--price", "3550", "--previous", "3500")

	require.ErrorIs(t, err, goldprice.ErrDelivery)
	require.Contains(t, out, "delivered=1 failed=1")
	require.NotNil(t, fake.previous)
	require.Equal(t, 3500.0, *fake.previous)
}

func TestNotifyRequiresPrice(t *testing.T) {
	fake := &fakeApp{}
	useFakeApp(t, fake, nil)

	_, err := execute("notify")

	require.Error(t, err)
	require.Zero(t, fake.notifyCalls)
}

func TestNotifyRejectsNegativePrices(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "negative price", args: []string{"notify", "--price=-1"}},
		{name: "negative previous", args: []string{"notify", "--price", "3550", "--previous=-3500"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeApp{}
			useFakeApp(t, fake, nil)

			_, err := execute(tc.args...)

			require.ErrorIs(t, err, goldprice.ErrConfig)
			require.Zero(t, fake.notifyCalls)
		})
	}
}

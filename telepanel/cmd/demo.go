package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/telepanel/remote"
)

var demoFlags panelOptions

var demoInterval time.Duration

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a panel against an in-process telemetry service.",
	Long: `Start the simulated telemetry service on a random port, run a ` +
		`panel against it, and keep changing the value, the speed, and the ` +
		`elevator calls so that every widget has something to show.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(
			cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return err
		}

		serveInBackground(ctx, listener)

		opts := demoFlags
		opts.server = fmt.Sprintf("http://%s", listener.Addr())

		go drive(ctx, remote.NewClient(opts.server), demoInterval)

		return runPanel(ctx, opts)
	},
}

func init() {
	addPanelFlags(demoCmd, &demoFlags)
	demoCmd.Flags().DurationVar(&demoInterval, "interval", 4*time.Second,
		"How often the demo changes the telemetry.")

	rootCmd.AddCommand(demoCmd)
}

// drive keeps changing the telemetry until ctx is done.
func drive(ctx context.Context, client *remote.Client, interval time.Duration) {
	value := remote.NewValueChannel(client)
	speed := remote.NewSpeedChannel(client)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for round := 0; ; round++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		steps := []error{
			value.Push(ctx, float64(rng.Intn(1000))/10),
			speed.Push(ctx, float64(rng.Intn(240))),
		}

		if round%3 == 0 {
			cmd := remote.CommandStart
			if round%6 == 3 {
				cmd = remote.CommandStop
			}

			steps = append(steps, client.SendCommand(ctx,
				remote.Command{Command: cmd, Time: time.Now()}))
		}

		if round%4 == 0 {
			id := 1 + rng.Intn(2)
			floor := 1 + rng.Intn(5)
			steps = append(steps, client.CallElevator(ctx, id, floor))
		}

		for _, err := range steps {
			if err != nil && ctx.Err() == nil && !isConflict(err) {
				log.Printf("demo: %v", err)
			}
		}
	}
}

// isConflict tells if the service refused a call to a moving elevator.
func isConflict(err error) bool {
	var fe *remote.FetchError
	return errors.As(err, &fe) && fe.StatusCode == http.StatusConflict
}

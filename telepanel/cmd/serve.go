package cmd

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/telepanel/datarecording"
	"github.com/sarchlab/telepanel/telemetry"
)

var serveFlags struct {
	listen    string
	db        string
	elevators int
	floors    int
	travel    time.Duration
	dwell     time.Duration
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulated telemetry service.",
	Long: `Serve the telemetry API the panel polls: the shared value and ` +
		`speed, the value history, start and stop commands, and a bank of ` +
		`simulated elevators. With --db, the history and the command log are ` +
		`recorded in SQLite.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(
			cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return newTelemetryServer().ListenAndServe(ctx, serveFlags.listen)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.listen, "listen", ":3000",
		"The address the service listens on.")
	f.StringVar(&serveFlags.db, "db", "",
		"Record to this SQLite database (without the .sqlite3 suffix).")
	f.IntVar(&serveFlags.elevators, "elevators", 2,
		"The number of simulated elevators.")
	f.IntVar(&serveFlags.floors, "floors", 5,
		"The number of floors of the simulated building.")
	f.DurationVar(&serveFlags.travel, "travel", 2*time.Second,
		"How long an elevator takes per floor.")
	f.DurationVar(&serveFlags.dwell, "dwell", 3*time.Second,
		"How long an elevator stays with its doors open.")

	rootCmd.AddCommand(serveCmd)
}

func newTelemetryServer() *telemetry.Server {
	b := telemetry.MakeServerBuilder().
		WithLogger(log.New(os.Stderr, "telemetry ", log.LstdFlags)).
		WithElevators(serveFlags.elevators).
		WithFloors(serveFlags.floors).
		WithTravelTime(serveFlags.travel).
		WithDwellTime(serveFlags.dwell)

	if serveFlags.db != "" {
		writer := datarecording.New(serveFlags.db)
		b = b.WithStore(datarecording.NewStore(writer))

		recorder := datarecording.NewExecRecorder(writer)
		recorder.Start()
		atexit.Register(func() {
			if err := recorder.End(); err != nil {
				log.Printf("cannot record the run: %v", err)
			}
		})
	}

	return b.Build()
}

// serveInBackground serves the telemetry service on listener until ctx is
// done.
func serveInBackground(ctx context.Context, listener net.Listener) {
	server := newTelemetryServer()

	go func() {
		if err := server.Serve(ctx, listener); err != nil {
			log.Printf("telemetry service stopped: %v", err)
		}
	}()
}

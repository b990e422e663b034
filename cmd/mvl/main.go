package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"moveline/internal/app"
	"moveline/internal/db"
	"moveline/internal/domain"
	"moveline/internal/estimate"
	"moveline/internal/events"
	"moveline/internal/inventory"
	"moveline/internal/remote"
	"moveline/internal/repo"
	"moveline/internal/server"
	"moveline/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "mvl",
	Short: "Moveline CLI",
	Long: `Moveline runs office-relocation site surveys from the terminal.
A survey walks three stages: setup (client, site, access), inventory
(count what moves and what gets disposed), and summary (the estimate).
Submitting sends the survey to the coordination endpoint; if the network
fails, the payload is kept locally so nothing is lost. The estimate
(volumes, crew days, vehicle, rental cost) recomputes after every edit.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("MOVELINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("endpoint", "", "survey endpoint URL (config, history, submissions)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("endpoint", rootCmd.PersistentFlags().Lookup("endpoint"))
}

func registerCommands() {
	rootCmd.AddCommand(surveyCmd())
	rootCmd.AddCommand(itemCmd())
	rootCmd.AddCommand(gpsCmd())
	rootCmd.AddCommand(noteCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func surveyCmd() *cobra.Command {
	s := &cobra.Command{
		Use:   "survey",
		Short: "Run the current survey",
		Long:  "The survey is the active draft in this workspace. It survives between invocations; 'survey reset' discards it.",
	}
	s.AddCommand(surveyShowCmd())
	s.AddCommand(surveySetCmd())
	s.AddCommand(surveyNextCmd())
	s.AddCommand(surveyBackCmd())
	s.AddCommand(surveySubmitCmd())
	s.AddCommand(surveyResetCmd())
	return s
}

func surveyShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the survey draft and its estimate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), app.Options{}, func(ctx context.Context, s *session.Session) error {
				return printSurvey(s)
			})
		},
	}
	return cmd
}

func surveySetCmd() *cobra.Command {
	var client, site, floor, parking, comments string
	var distance float64
	var clearDistance, elevator bool
	var stairs int
	var dimW, dimD, dimH, dimLoad string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Edit mission fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts session.MissionUpdateOptions
			if cmd.Flags().Changed("client") {
				opts.ClientName = &client
			}
			if cmd.Flags().Changed("site") {
				opts.SiteName = &site
			}
			if cmd.Flags().Changed("floor") {
				opts.Floor = &floor
			}
			if cmd.Flags().Changed("distance") {
				opts.DistanceKm = &distance
			}
			opts.ClearDistance = clearDistance
			if cmd.Flags().Changed("elevator") {
				opts.Elevator = &elevator
			}
			if cmd.Flags().Changed("elevator-width") || cmd.Flags().Changed("elevator-depth") ||
				cmd.Flags().Changed("elevator-height") || cmd.Flags().Changed("elevator-load") {
				opts.ElevatorDims = &domain.ElevatorDims{Width: dimW, Depth: dimD, Height: dimH, MaxLoad: dimLoad}
			}
			if cmd.Flags().Changed("parking") {
				band := domain.ParkingBand(parking)
				opts.ParkingBand = &band
			}
			if cmd.Flags().Changed("stairs") {
				opts.Stairs = &stairs
			}
			if cmd.Flags().Changed("comments") {
				opts.Comments = &comments
			}
			return withSession(cmd.Context(), app.Options{}, func(ctx context.Context, s *session.Session) error {
				if err := s.UpdateMission(opts); err != nil {
					return err
				}
				return printSurvey(s)
			})
		},
	}
	cmd.Flags().StringVar(&client, "client", "", "client name")
	cmd.Flags().StringVar(&site, "site", "", "site name")
	cmd.Flags().StringVar(&floor, "floor", "", "floor (0, 1, 2, 3+)")
	cmd.Flags().Float64Var(&distance, "distance", 0, "one-way distance to the new site in km")
	cmd.Flags().BoolVar(&clearDistance, "clear-distance", false, "unset the distance")
	cmd.Flags().BoolVar(&elevator, "elevator", false, "elevator available")
	cmd.Flags().StringVar(&dimW, "elevator-width", "", "elevator cab width")
	cmd.Flags().StringVar(&dimD, "elevator-depth", "", "elevator cab depth")
	cmd.Flags().StringVar(&dimH, "elevator-height", "", "elevator door height")
	cmd.Flags().StringVar(&dimLoad, "elevator-load", "", "elevator max load")
	cmd.Flags().StringVar(&parking, "parking", "", "parking distance band (0-10m, 10-50m, >50m)")
	cmd.Flags().IntVar(&stairs, "stairs", 0, "stair flights without elevator")
	cmd.Flags().StringVar(&comments, "comments", "", "free-form notes")
	return cmd
}

func surveyNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Advance to the next stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), app.Options{}, func(ctx context.Context, s *session.Session) error {
				if err := s.Advance(ctx); err != nil {
					return err
				}
				return printSurvey(s)
			})
		},
	}
	return cmd
}

func surveyBackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "back",
		Short: "Go back one stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), app.Options{}, func(ctx context.Context, s *session.Session) error {
				if err := s.Back(ctx); err != nil {
					return err
				}
				return printSurvey(s)
			})
		},
	}
	return cmd
}

func surveySubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit the survey to the endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), app.Options{}, func(ctx context.Context, s *session.Session) error {
				if err := s.Submit(ctx); err != nil {
					if errors.Is(err, session.ErrSubmissionFailed) {
						fmt.Println("submission failed; payload saved locally ('mvl backup show')")
					}
					return err
				}
				fmt.Println("survey submitted")
				return nil
			})
		},
	}
	return cmd
}

func surveyResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard the survey draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := app.Open(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			defer conn.Close()
			r := repo.Repo{DB: conn}
			if err := app.ResetSession(cmd.Context(), r); err != nil {
				return err
			}
			fmt.Println("draft discarded")
			return nil
		},
	}
	return cmd
}

func itemCmd() *cobra.Command {
	item := &cobra.Command{
		Use:   "item",
		Short: "Count inventory items",
		Long:  "Each catalog item has two counters: to move and to dispose. Counters change one step at a time and never go below zero.",
	}
	item.AddCommand(itemAddCmd())
	item.AddCommand(itemRemoveCmd())
	return item
}

func itemAddCmd() *cobra.Command {
	var dispose bool
	var count int
	cmd := &cobra.Command{
		Use:   "add <item-id>",
		Short: "Increment an item counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return adjustItem(cmd.Context(), args[0], dispose, count, 1)
		},
	}
	cmd.Flags().BoolVar(&dispose, "dispose", false, "count toward disposal instead of the move")
	cmd.Flags().IntVar(&count, "count", 1, "repeat the increment")
	return cmd
}

func itemRemoveCmd() *cobra.Command {
	var dispose bool
	var count int
	cmd := &cobra.Command{
		Use:   "remove <item-id>",
		Short: "Decrement an item counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return adjustItem(cmd.Context(), args[0], dispose, count, -1)
		},
	}
	cmd.Flags().BoolVar(&dispose, "dispose", false, "count toward disposal instead of the move")
	cmd.Flags().IntVar(&count, "count", 1, "repeat the decrement")
	return cmd
}

func adjustItem(ctx context.Context, itemID string, dispose bool, count, delta int) error {
	if count < 1 {
		return fmt.Errorf("--count must be at least 1")
	}
	bucket := inventory.BucketMove
	if dispose {
		bucket = inventory.BucketDispose
	}
	return withSession(ctx, app.Options{}, func(ctx context.Context, s *session.Session) error {
		for i := 0; i < count; i++ {
			if err := s.AdjustItem(itemID, bucket, delta); err != nil {
				return err
			}
		}
		return printSurvey(s)
	})
}

func gpsCmd() *cobra.Command {
	g := &cobra.Command{
		Use:   "gps",
		Short: "Position fix for the surveyed site",
	}
	g.AddCommand(gpsSetCmd())
	g.AddCommand(gpsClearCmd())
	return g
}

func gpsSetCmd() *cobra.Command {
	var lat, lng, accuracy float64
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Record a position fix",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), app.Options{}, func(ctx context.Context, s *session.Session) error {
				if err := s.SetFix(domain.GPSFix{Lat: lat, Lng: lng, Accuracy: accuracy}); err != nil {
					return err
				}
				fmt.Println(s.Mission.GPS.MapURL())
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude")
	cmd.Flags().Float64Var(&accuracy, "accuracy", 0, "accuracy in meters")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}

func gpsClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Discard the position fix",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), app.Options{}, func(ctx context.Context, s *session.Session) error {
				return s.ClearFix()
			})
		},
	}
	return cmd
}

func noteCmd() *cobra.Command {
	n := &cobra.Command{
		Use:   "note",
		Short: "Voice notes attached to the survey",
	}
	n.AddCommand(noteRecordCmd())
	n.AddCommand(noteRmCmd())
	n.AddCommand(noteListCmd())
	return n
}

// fileRecorder satisfies the audio capture port with a pre-recorded file:
// Stop reads the file and packs it as a data URI, the shape submissions carry.
type fileRecorder struct{ path string }

func (f fileRecorder) Start(ctx context.Context) (session.Recording, error) {
	if _, err := os.Stat(f.path); err != nil {
		return nil, err
	}
	return fileRecording(f), nil
}

type fileRecording struct{ path string }

func (f fileRecording) Stop() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", err
	}
	mime := "audio/webm"
	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".mp3":
		mime = "audio/mpeg"
	case ".wav":
		mime = "audio/wav"
	case ".ogg":
		mime = "audio/ogg"
	case ".m4a":
		mime = "audio/mp4"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func noteRecordCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Attach an audio file as a voice note",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := app.Options{Recorder: fileRecorder{path: filePath}}
			return withSession(cmd.Context(), opts, func(ctx context.Context, s *session.Session) error {
				if err := s.StartRecording(ctx); err != nil {
					return err
				}
				if err := s.StopRecording(ctx); err != nil {
					return err
				}
				note := s.Mission.VoiceNotes[len(s.Mission.VoiceNotes)-1]
				fmt.Printf("note %s attached (%d notes)\n", note.ID, len(s.Mission.VoiceNotes))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "audio file to attach")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func noteRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <note-id>",
		Short: "Delete a voice note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), app.Options{}, func(ctx context.Context, s *session.Session) error {
				return s.DeleteVoiceNote(ctx, args[0])
			})
		},
	}
	return cmd
}

func noteListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List voice notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), app.Options{}, func(ctx context.Context, s *session.Session) error {
				type row struct {
					ID    string `json:"id"`
					Bytes int    `json:"bytes"`
				}
				var rows []row
				for _, n := range s.Mission.VoiceNotes {
					rows = append(rows, row{ID: n.ID, Bytes: len(n.Data)})
				}
				return printJSONOrTable(rows)
			})
		},
	}
	return cmd
}

func historyCmd() *cobra.Command {
	h := &cobra.Command{
		Use:   "history",
		Short: "Browse submitted surveys",
	}
	h.AddCommand(historyListCmd())
	h.AddCommand(historyShowCmd())
	return h
}

func historyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List submitted surveys from the endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := viper.GetString("endpoint")
			if endpoint == "" {
				return fmt.Errorf("--endpoint required (or MOVELINE_ENDPOINT)")
			}
			client := remote.New(endpoint)
			rows, err := client.FetchHistory(cmd.Context())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(rows)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"#", "Date", "Client", "Site", "Move m3", "Trash m3", "Crew days", "Vehicle", "Cost"})
			for i, r := range rows {
				tw.AppendRow(table.Row{i, r.Date, r.Client, r.Site, r.MoveVolume, r.DisposeVol, r.CrewDays, r.Vehicle, r.Cost})
			}
			tw.Render()
			return nil
		},
	}
	return cmd
}

func historyShowCmd() *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one submitted survey",
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := viper.GetString("endpoint")
			if endpoint == "" {
				return fmt.Errorf("--endpoint required (or MOVELINE_ENDPOINT)")
			}
			client := remote.New(endpoint)
			rows, err := client.FetchHistory(cmd.Context())
			if err != nil {
				return err
			}
			if index < 0 || index >= len(rows) {
				return fmt.Errorf("no history row %d (have %d)", index, len(rows))
			}
			return printJSONOrTable(rows[index])
		},
	}
	cmd.Flags().IntVar(&index, "index", 0, "row index from 'history list'")
	return cmd
}

func catalogCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "catalog",
		Short: "Item catalog and pricing parameters",
	}
	c.AddCommand(catalogShowCmd())
	return c
}

func catalogShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the active catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), app.Options{}, func(ctx context.Context, s *session.Session) error {
				if s.OfflineDefaults && viper.GetString("endpoint") != "" {
					fmt.Println("warning: endpoint unreachable, showing built-in defaults")
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"items":  s.Catalog.ByCategory(),
						"params": s.Catalog.Params,
					})
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Category", "ID", "Name", "m3/unit"})
				for _, g := range s.Catalog.ByCategory() {
					for _, it := range g.Items {
						tw.AppendRow(table.Row{g.Category, it.ID, it.Name, it.UnitVolume})
					}
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func backupCmd() *cobra.Command {
	b := &cobra.Command{
		Use:   "backup",
		Short: "Locally staged failed submission",
	}
	b.AddCommand(backupShowCmd())
	b.AddCommand(backupClearCmd())
	return b
}

func backupShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the staged payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := app.Open(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			defer conn.Close()
			r := repo.Repo{DB: conn}
			payload, savedAt, err := r.LoadBackup(cmd.Context())
			if err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					fmt.Println("no staged submission")
					return nil
				}
				return err
			}
			fmt.Printf("saved at %s\n%s\n", savedAt, payload)
			return nil
		},
	}
	return cmd
}

func backupClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop the staged payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := app.Open(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			defer conn.Close()
			r := repo.Repo{DB: conn}
			return r.DeleteBackup(cmd.Context())
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event journal",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail journal events",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := app.Open(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			defer conn.Close()
			r := repo.Repo{DB: conn}
			events, err := r.ListEvents(cmd.Context(), n)
			if err != nil {
				return err
			}
			return printJSONOrTable(events)
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP survey API",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := app.Open(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			defer conn.Close()
			r := repo.Repo{DB: conn}
			jw := events.Writer{DB: conn}
			var client *remote.Client
			if ep := viper.GetString("endpoint"); ep != "" {
				client = remote.New(ep)
			}
			cat, offline := app.LoadCatalog(cmd.Context(), client, jw)
			sessions := server.NewManager(func() *session.Session {
				opts := session.Options{
					Catalog:         cat,
					OfflineDefaults: offline,
					Backups:         r,
					Journal:         jw,
				}
				if client != nil {
					opts.Remote = client
				}
				return session.New(opts)
			})
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("MOVELINE_JWT_SECRET")}
			handler, err := server.New(server.Config{Sessions: sessions, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Moveline API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withSession(ctx context.Context, opts app.Options, fn func(context.Context, *session.Session) error) error {
	conn, err := app.Open(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer conn.Close()
	if opts.Endpoint == "" {
		opts.Endpoint = viper.GetString("endpoint")
	}
	s, r, err := app.ResolveSession(ctx, conn, opts)
	if err != nil {
		return err
	}
	if err := fn(ctx, s); err != nil {
		return err
	}
	return app.SaveSession(ctx, r, s)
}

func printSurvey(s *session.Session) error {
	if viper.GetBool("json") {
		out := map[string]any{
			"stage":     s.Stage,
			"mission":   s.Mission,
			"inventory": s.Ledger,
		}
		if est, err := s.Estimate(); err == nil {
			out["estimate"] = est
		} else {
			out["estimateError"] = err.Error()
		}
		return printJSON(out)
	}
	fmt.Printf("Stage: %s\n", s.Stage)
	if s.OfflineDefaults {
		fmt.Println("Catalog: built-in defaults (endpoint unavailable)")
	}
	fmt.Printf("Client: %s  Site: %s\n", s.Mission.ClientName, s.Mission.SiteName)
	access := "elevator"
	if !s.Mission.Elevator {
		access = "stairs"
	}
	fmt.Printf("Floor: %s (%s)  Parking: %s\n", s.Mission.Floor, access, s.Mission.ParkingBand)
	if s.Mission.DistanceKm != nil {
		fmt.Printf("Distance: %g km one way\n", *s.Mission.DistanceKm)
	}
	est, err := s.Estimate()
	if err != nil {
		fmt.Printf("Estimate unavailable: %v\n", err)
		return nil
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Move m3", "Trash m3", "Difficulty", "Crew days", "Vehicle", "Rental days", "Cost EUR"})
	vehicle := fmt.Sprintf("%dx %s", est.VehicleCount, est.Vehicle)
	if est.Vehicle == estimate.VehicleNone {
		vehicle = "none"
	}
	rental := fmt.Sprintf("%g", est.RentalDays)
	if est.HalfDay {
		rental = "half day"
	}
	tw.AppendRow(table.Row{est.MoveVolume, est.DisposeVolume, est.Difficulty, est.CrewDays, vehicle, rental, est.Cost.Total})
	tw.Render()
	return nil
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

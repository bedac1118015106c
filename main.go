package main

import (
	"flag"
	"log/slog"
	"os"
	"strings"

	"yoink.exe.dev/srv"
)

func main() {
	addr := flag.String("addr", ":5177", "listen address")
	dbPath := flag.String("db", "yoink.sqlite3", "path to the results database")
	dictURLs := flag.String("dict", "", "comma-separated dictionary URLs (one word per line); empty uses the built-in fallback")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// The dictionary loads once, before any traffic is accepted.
	var urls []string
	for _, u := range strings.Split(*dictURLs, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	dict := srv.LoadDictionary(urls)

	server, err := srv.New(*dbPath, dict)
	if err != nil {
		slog.Error("server setup", "error", err)
		os.Exit(1)
	}
	server.Rooms.StartCleanup(srv.RoomCleanupInterval, srv.RoomMaxEmptyAge)

	if err := server.Serve(*addr); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// Command boltwire demonstrates opening a session against a server speaking
// the wire protocol implemented by this module and running one statement.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/grapholt/boltwire/bolt"
	"github.com/grapholt/boltwire/logger"
	"github.com/grapholt/boltwire/packstream"
)

func main() {
	cfg := bolt.DefaultConfig()
	cfg.Auth = bolt.Auth{Principal: "neo4j", Credentials: os.Getenv("BOLT_PASSWORD")}

	driver := bolt.NewDriver("localhost", 7687, cfg)

	sess, err := driver.Session(context.Background())
	if err != nil {
		logger.E(nil, "open session failed:", err)
		os.Exit(1)
	}
	defer sess.Close()

	err = sess.Run("RETURN 1 AS n", packstream.Map(), packstream.Map(), func(record packstream.Value) {
		fmt.Println(record)
	})
	if err != nil {
		logger.E(nil, "run failed:", err)
		os.Exit(1)
	}
}

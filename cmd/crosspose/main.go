// crosspose converts Kubernetes manifests into OS-partitioned docker-compose
// projects.
package main

import (
	"os"

	"github.com/andrewiankidd/crosspose-sub000/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

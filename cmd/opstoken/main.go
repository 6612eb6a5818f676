// Command opstoken prints an operator bearer token signed with the
// configured secret key.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/claimkeeper/internal/flagx"
	"github.com/dmitrijs2005/claimkeeper/internal/server/auth"
	"github.com/dmitrijs2005/claimkeeper/internal/server/config"
)

func main() {

	cfg := config.LoadConfig()

	var operatorID string
	fs := flag.NewFlagSet("opstoken", flag.ExitOnError)
	fs.StringVar(&operatorID, "operator", "", "operator id embedded in the token")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-operator", "--operator"}))

	if operatorID == "" {
		log.Fatal("-operator is required")
	}

	token, err := auth.GenerateToken(operatorID, []byte(cfg.SecretKey), cfg.OperatorTokenValidityDuration)
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Println(token)
}

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/betbot/gostat/pkg/tokenstore"
)

func main() {
	var (
		storePath = flag.String("store", getenv("GOSTAT_TOKEN_STORE", "data/tokens.badger"), "badger token store path")
		secretKey = flag.String("secret-key", getenv("GOSTAT_TOKEN_KEY", ""), "badger encryption key (32 bytes base64/hex, optional)")
		issueName = flag.String("issue", "", "issue a new token for the named caller")
		revokeTok = flag.String("revoke", "", "revoke an existing token")
		list      = flag.Bool("list", false, "list issued tokens (names only)")
	)
	flag.Parse()

	actions := 0
	if *issueName != "" {
		actions++
	}
	if *revokeTok != "" {
		actions++
	}
	if *list {
		actions++
	}
	if actions != 1 {
		fatal(fmt.Errorf("exactly one of -issue, -revoke, -list is required"))
	}

	keyBytes, err := tokenstore.ParseKey(*secretKey)
	if err != nil {
		fatal(err)
	}

	store, err := tokenstore.Open(tokenstore.OpenOptions{
		Path:          *storePath,
		EncryptionKey: keyBytes,
		ReadOnly:      *list,
	})
	if err != nil {
		fatal(err)
	}
	defer store.Close()

	switch {
	case *issueName != "":
		token, err := store.Issue(*issueName)
		if err != nil {
			fatal(err)
		}
		// token 只在签发时打印一次，存储里不保存明文以外的副本
		fmt.Fprintf(os.Stderr, "已为 %s 签发 token：\n", *issueName)
		fmt.Println(token)

	case *revokeTok != "":
		if err := store.Revoke(*revokeTok); err != nil {
			fatal(err)
		}
		fmt.Fprintln(os.Stderr, "已撤销 token")

	case *list:
		recs, err := store.List()
		if err != nil {
			fatal(err)
		}
		if len(recs) == 0 {
			fmt.Fprintln(os.Stderr, "没有已签发的 token")
			return
		}
		for _, r := range recs {
			fmt.Printf("%s\t%s\n", r.Name, r.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}

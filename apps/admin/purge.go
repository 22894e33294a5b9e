package main

import (
	"context"
	"fmt"
	"time"
)

// purge removes the store entries not updated for the given duration.
func (cli *commandLine) purge(ctx context.Context, age time.Duration) error {
	n, err := cli.store.Purge(ctx, time.Now().Add(-age))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cli.out, "%d entries purged\n", n)
	return err
}

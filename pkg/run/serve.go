/*
   xgdctl - Xbox security sector tools
   Copyright (c) 2024, the xgdctl authors

   This file is part of xgdctl.

   xgdctl is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   xgdctl is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with xgdctl. If not, see <http://www.gnu.org/licenses/>.
*/

package run

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/Deterous/ParseXboxMetadata/pkg/control"
)

//
func NewServe() *Serve {

	s := &Serve{}
	s.Command = *NewCommand(
		"serve [-a|--address {address}]",
		"API server command",
		`
Use the serve command for running the API server. Security sectors, DMI sectors,
and XBE files can then be parsed, repaired, cleaned, and rebuilt via HTTP:

  POST /ss/{parse|repair|clean|rebuild}
  POST /dmi/parse
  POST /xbe/parse
  GET  /metrics`,
		"", runnerHelpEpilogue, s.Run)

	s.AddSettings(Setting{Target: &s.Address, Flag: "address", Short: "a",
		Env: "XGD_ADDRESS", Default: "127.0.0.1:8888",
		Help: "listen address for API server"})

	return s
}

//
type Serve struct {
	//
	Command
	//
	Address string
}

//
func (s *Serve) Run() error {

	s.ParseSettings()

	wg := &sync.WaitGroup{}
	wg.Add(1)

	api := control.NewAPIServer(s.Address)
	go func() {
		defer wg.Done()
		if err := api.Serve(); err != nil {
			log.Errorf("API server closed with error: %v", err)
		} else {
			log.Info("API server stopped")
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sigCount := 0
	done := make(chan bool)

	go func() {
		wg.Wait()
		done <- true
	}()

	for {

		select {

		case sig := <-sigs: // interrupt signal
			log.WithField("signal", sig).Info("signal received")
			sigCount++

			switch sigCount {

			case 1:
				go func() {
					log.Info("shutting down, hit Ctrl-C twice to force exit...")
					api.Stop()
				}()

			case 2:
				log.Warn("shutdown in progress, hit Ctrl-C again to force exit")

			default:
				log.Warn("forcing server to stop immediately")
				os.Exit(1)
			}

		case <-done: // server gone, either stopped or failed
			log.Info("xgdctl stopped")
			return nil
		}
	}
}

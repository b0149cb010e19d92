package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nyan233/workerpool"
	"github.com/nyan233/workerpool/core/runtime"
	"github.com/urfave/cli/v2"
)

// wpworker 可以直接用作进程worker脚本的演示执行器
// stdout被协议占用, 诊断输出全部走stderr
func main() {
	app := &cli.App{
		Name:  "wpworker",
		Usage: "demo process worker hosting a few arithmetic methods",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "startup-delay",
				Usage: "delay before the ready handshake, for testing spawn timing",
			},
		},
		Action: serveAction,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveAction(c *cli.Context) error {
	if delay := c.Duration("startup-delay"); delay > 0 {
		time.Sleep(delay)
	}
	workerpool.RegisterWorker(demoMethods(), runtime.WithTerminationHandler(func() error {
		fmt.Fprintln(os.Stderr, "wpworker: terminating")
		return nil
	})).Serve()
	return nil
}

func demoMethods() map[string]runtime.Method {
	return map[string]runtime.Method{
		"add": func(params []interface{}) (interface{}, error) {
			sum := float64(0)
			for _, p := range params {
				n, ok := p.(float64)
				if !ok {
					return nil, fmt.Errorf("add expects numbers, got %T", p)
				}
				sum += n
			}
			return sum, nil
		},
		"echo": func(params []interface{}) (interface{}, error) {
			if len(params) == 0 {
				return nil, nil
			}
			return params[0], nil
		},
		"sleep": func(params []interface{}) (interface{}, error) {
			if len(params) != 1 {
				return nil, errors.New("sleep expects a single duration in milliseconds")
			}
			ms, ok := params[0].(float64)
			if !ok {
				return nil, fmt.Errorf("sleep expects a number, got %T", params[0])
			}
			time.Sleep(time.Duration(ms) * time.Millisecond)
			return ms, nil
		},
		// fibonacci 逐项上报进度事件, 最终应答是完整序列
		"fibonacci": func(params []interface{}) (interface{}, error) {
			if len(params) != 1 {
				return nil, errors.New("fibonacci expects a single count")
			}
			count, ok := params[0].(float64)
			if !ok || count < 1 {
				return nil, fmt.Errorf("fibonacci expects a positive number, got %v", params[0])
			}
			seq := make([]uint64, 0, int(count))
			a, b := uint64(0), uint64(1)
			for i := 0; i < int(count); i++ {
				seq = append(seq, a)
				workerpool.Emit(a)
				a, b = b, a+b
			}
			return seq, nil
		},
		"crash": func(params []interface{}) (interface{}, error) {
			os.Exit(3)
			return nil, nil
		},
	}
}

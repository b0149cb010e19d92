package transport

import (
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/nyan233/workerpool/core/protocol/message"
	"github.com/nyan233/workerpool/pkg/common/logger"
)

// Process 子进程执行器的传输, 消息走stdio上的换行JSON帧
// 子进程的stderr直接透传, stdout被wire协议占用
// 这类传输无法移动缓冲区所有权, transferables被忽略并按值复制
type Process struct {
	path   string
	args   []string
	env    []string
	logger logger.LLogger

	cmd      *exec.Cmd
	writer   *message.Writer
	killed   int32
	exitOnce sync.Once
}

func NewProcess(path string, args, env []string, l logger.LLogger) *Process {
	if l == nil {
		l = logger.DefaultLogger
	}
	return &Process{
		path:   path,
		args:   args,
		env:    env,
		logger: l,
	}
}

func (p *Process) Start(ev Events) error {
	cmd := exec.Command(p.path, p.args...)
	if len(p.env) > 0 {
		cmd.Env = append(os.Environ(), p.env...)
	}
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	p.cmd = cmd
	p.writer = message.NewWriter(stdin)
	go func() {
		reader := message.NewReader(stdout)
		for {
			env, readErr := reader.Read()
			if readErr != nil {
				break
			}
			ev.OnMessage(env)
		}
		waitErr := cmd.Wait()
		code := -1
		if cmd.ProcessState != nil {
			code = cmd.ProcessState.ExitCode()
		}
		if waitErr != nil && atomic.LoadInt32(&p.killed) == 0 {
			p.logger.Debug("workerpool transport: worker process %d exited: %v", cmd.Process.Pid, waitErr)
		}
		p.exitOnce.Do(func() {
			if ev.OnExit != nil {
				ev.OnExit(code, waitErr)
			}
		})
	}()
	return nil
}

func (p *Process) Send(env message.Envelope) error {
	if p.writer == nil {
		return ErrClosed
	}
	return p.writer.Write(env)
}

func (p *Process) Kill() error {
	if p.cmd == nil || p.cmd.Process == nil {
		return ErrClosed
	}
	atomic.StoreInt32(&p.killed, 1)
	return p.cmd.Process.Kill()
}

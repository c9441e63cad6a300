// Package gogit binds the gitauth negotiation core to go-git transports.
//
// It plays the transport role that the core treats as an external
// collaborator: converting negotiated credentials into go-git
// transport.AuthMethod values, building hostkey certificates from SSH
// handshake data, and routing go-git host key callbacks through the
// validation gate. It also ships ready-made acquirers for the common
// credential sources: static secrets, OpenSSH client configuration,
// ssh-agent, and key material on a billy filesystem.
//
// # Converting Credentials
//
//	cred, err := attempt.Acquire(ctx, allowed)
//	method, err := gogit.AuthMethod(cred, remoteURL, nil)
//	err = repo.Fetch(&git.FetchOptions{Auth: method})
//
// # Validating Host Keys
//
// GateHostKeyCallback turns an attempt's validation gate into an
// ssh.HostKeyCallback, so the gate runs during the SSH handshake, strictly
// before authentication:
//
//	cb := gogit.GateHostKeyCallback(ctx, attempt)
//	method, err := gogit.AuthMethod(cred, remoteURL, cb)
//
// KnownHostsValidator implements the gate against OpenSSH known_hosts files.
//
// # Acquirer Chain
//
// Acquirers compose in order, with "no credential" from one falling through
// to the next:
//
//	acq := gogit.NewChainAcquirer().
//	    AddAcquirer(&gogit.SSHConfigAcquirer{}).
//	    AddAcquirer(gogit.NewAgentAcquirer()).
//	    AddAcquirer(&gogit.StaticAcquirer{Token: token})
package gogit

// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package security

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/pkg/errors"

	"github.com/l3montree-dev/devkit/utils"
)

type CosignOptions struct {
	Key             string
	File            string
	Image           string
	OutputSignature string
	TlogUpload      bool
	// Password unlocks the key. Empty keeps COSIGN_PASSWORD of the environment.
	Password string
}

func (o CosignOptions) env() []string {
	if o.Password == "" {
		return nil
	}
	return []string{"COSIGN_PASSWORD=" + o.Password}
}

// SignBlob signs a file with cosign and returns the path of the signature.
func SignBlob(ctx context.Context, opts CosignOptions) (string, error) {
	if opts.Key == "" {
		return "", errors.New("a cosign key is required")
	}
	output := utils.OrDefault(utils.EmptyThenNil(opts.OutputSignature), opts.File+".sig")
	args := []string{"sign-blob", "--yes", "--key", opts.Key, "--output-signature", output, "--tlog-upload=" + strconv.FormatBool(opts.TlogUpload), opts.File}

	if _, err := utils.Runner.Run(ctx, utils.CommandOptions{Name: "cosign", Args: args, Env: opts.env(), ThrowOnError: true}); err != nil {
		return "", errors.Wrap(err, "could not sign blob")
	}
	slog.Info("signed file", "file", opts.File, "signature", output)
	return output, nil
}

// SignImage resolves the image to its digest first, so the signature does not follow a moving tag.
// It returns the signed digest reference.
func SignImage(ctx context.Context, opts CosignOptions) (string, error) {
	if opts.Key == "" {
		return "", errors.New("a cosign key is required")
	}
	digestRef, err := ResolveDigest(ctx, opts.Image)
	if err != nil {
		return "", err
	}

	args := []string{"sign", "--yes", "--key", opts.Key, "--tlog-upload=" + strconv.FormatBool(opts.TlogUpload), digestRef}
	if _, err := utils.Runner.Run(ctx, utils.CommandOptions{Name: "cosign", Args: args, Env: opts.env(), ThrowOnError: true}); err != nil {
		return "", errors.Wrap(err, "could not sign image")
	}
	slog.Info("signed image", "image", digestRef)
	return digestRef, nil
}

type GPGOptions struct {
	KeyID  string
	File   string
	Output string
	Armor  bool
}

// SignWithGPG creates a detached signature with the gpg binary. The default output is file.asc for
// armored and file.sig for binary signatures.
func SignWithGPG(ctx context.Context, opts GPGOptions) (string, error) {
	output := opts.Output
	if output == "" {
		if opts.Armor {
			output = opts.File + ".asc"
		} else {
			output = opts.File + ".sig"
		}
	}

	args := []string{"--batch", "--yes"}
	if opts.KeyID != "" {
		args = append(args, "--local-user", opts.KeyID)
	}
	if opts.Armor {
		args = append(args, "--armor")
	}
	args = append(args, "--detach-sign", "--output", output, opts.File)

	if _, err := utils.Runner.Run(ctx, utils.CommandOptions{Name: "gpg", Args: args, ThrowOnError: true}); err != nil {
		return "", errors.Wrap(err, "could not sign with gpg")
	}
	return output, nil
}

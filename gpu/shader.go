// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// compileShader compiles WGSL to SPIR-V with naga and wraps it in a HAL
// shader module. Going through SPIR-V rather than handing the driver raw
// WGSL keeps shader validation errors on the Go side of the boundary.
func compileShader(device hal.Device, label, wgsl string) (hal.ShaderModule, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", label, err)
	}
	spirv := make([]uint32, len(spirvBytes)/4)
	for i := range spirv {
		spirv[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
}

// iterateShaderSource is the per-pixel iteration kernel. One invocation
// owns one pixel and runs it for up to params.max_iters iterations,
// mirroring the CPU iterator step for step: perturbation recurrence,
// escape test, checkpoint comparison before the rebase decision, rebase
// when the perturbation dominates, and power-of-two checkpoint snapshots.
//
// State words match the CPU Status values: 0 active, 1 escaped,
// 2 converged. The pixel record layout mirrors the CPU arena field for
// field at float32.
const iterateShaderSource = `
struct Params {
    escape_radius2: f32,
    eps: f32,
    eps2: f32,
    max_iters: u32,
    orbit_len: u32,
    pixel_count: u32,
    _pad0: u32,
    _pad1: u32,
}

struct Pixel {
    dc: vec2<f32>,
    dz: vec2<f32>,
    cp_dz: vec2<f32>,
    ref_index: u32,
    cp_ref_index: u32,
    cp_iter: u32,
    iter: u32,
    period: u32,
    state: u32,
    scale: i32,
    scale_floor: i32,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> orbit: array<vec2<f32>>;
@group(0) @binding(2) var<storage, read_write> pixels: array<Pixel>;

const PI: f32 = 3.14159265358979;

fn cycle_distance(a: vec2<f32>, b: vec2<f32>) -> f32 {
    let ma = length(a);
    let mb = length(b);
    if (ma < 0.25 || mb < 0.25) {
        return length(a - b);
    }
    let dm = abs(ma - mb);
    var da = abs(atan2(a.y, a.x) - atan2(b.y, b.x));
    if (da > PI) {
        da = 2.0 * PI - da;
    }
    return dm + min(ma, mb) * da;
}

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let idx = gid.x;
    if (idx >= params.pixel_count) {
        return;
    }
    var p = pixels[idx];
    if (p.state != 0u) {
        return;
    }

    var n = 0u;
    loop {
        if (n >= params.max_iters || p.state != 0u) {
            break;
        }
        n = n + 1u;

        // Cursor ran off the frozen orbit tail: fold the reference in and
        // ride the orbit from the start.
        if (p.ref_index + 1u >= params.orbit_len) {
            p.dz = p.dz + orbit[p.ref_index];
            p.ref_index = 0u;
            p.cp_dz = p.dz;
            p.cp_ref_index = 0u;
            p.cp_iter = p.iter;
        }

        let z = orbit[p.ref_index];
        let dz = p.dz;
        let ndz = vec2<f32>(
            2.0 * (z.x * dz.x - z.y * dz.y) + (dz.x * dz.x - dz.y * dz.y) + p.dc.x,
            2.0 * (z.x * dz.y + z.y * dz.x) + 2.0 * dz.x * dz.y + p.dc.y,
        );
        let tot = orbit[p.ref_index + 1u] + ndz;

        p.iter = p.iter + 1u;
        let tot2 = dot(tot, tot);
        if (tot2 > params.escape_radius2) {
            p.dz = ndz;
            p.state = 1u;
            break;
        }

        // Compare against the checkpoint before any rebase bookkeeping.
        let cp_tot = orbit[p.cp_ref_index] + p.cp_dz;
        let d = cycle_distance(tot, cp_tot);
        let scale = 1.0 + length(cp_tot);
        if (p.period == 0u) {
            if (d < params.eps2 * scale && p.iter > p.cp_iter) {
                p.period = p.iter - p.cp_iter;
            }
        } else if (d < params.eps * scale) {
            p.period = p.iter - p.cp_iter;
            p.dz = ndz;
            p.state = 2u;
            break;
        }

        if (tot2 < 4.0 * dot(ndz, ndz)) {
            p.dz = tot;
            p.ref_index = 0u;
            p.cp_dz = p.dz;
            p.cp_ref_index = 0u;
            p.cp_iter = p.iter;
        } else {
            p.dz = ndz;
            p.ref_index = p.ref_index + 1u;
        }

        if ((p.iter & (p.iter - 1u)) == 0u) {
            p.cp_dz = p.dz;
            p.cp_ref_index = p.ref_index;
            p.cp_iter = p.iter;
        }
    }

    pixels[idx] = p;
}
`
